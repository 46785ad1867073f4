package file

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// UploadError is the transport status code attached to an uploaded file.
type UploadError int

const (
	UploadErrOK        UploadError = 0
	UploadErrIniSize   UploadError = 1 // exceeds the server-wide size limit
	UploadErrFormSize  UploadError = 2 // exceeds the limit declared by the form
	UploadErrPartial   UploadError = 3
	UploadErrNoFile    UploadError = 4
	UploadErrNoTmpDir  UploadError = 6
	UploadErrCantWrite UploadError = 7
	UploadErrExtension UploadError = 8 // an extension stopped the upload
)

var uploadErrorMessages = map[UploadError]string{
	UploadErrIniSize:   "The uploaded file exceeds the maximum allowed upload size",
	UploadErrFormSize:  "The uploaded file exceeds the maximum size specified in the form",
	UploadErrPartial:   "The uploaded file was only partially uploaded",
	UploadErrNoFile:    "No file was uploaded",
	UploadErrNoTmpDir:  "Missing a temporary folder",
	UploadErrCantWrite: "Failed to write file to disk",
	UploadErrExtension: "A server extension stopped the file upload",
}

// OK reports whether the upload succeeded.
func (e UploadError) OK() bool { return e == UploadErrOK }

// Message returns the human-readable description of the code.
func (e UploadError) Message() string {
	if e == UploadErrOK {
		return "The file uploaded successfully"
	}
	if msg, ok := uploadErrorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown upload error (code %d)", int(e))
}

// Record keys of a flat transport record.
const (
	KeyName    = "name"
	KeySize    = "size"
	KeyType    = "type"
	KeyTmpName = "tmp_name"
	KeyError   = "error"
)

// Record is one file as delivered by the transport layer.
type Record struct {
	Name    string
	Size    int64
	Type    string
	TmpPath string
	Error   UploadError
}

// UploadSource is the raw nested mapping delivered by the transport layer, keyed by
// form field name. A value is one of:
//   - a flat record: Record, or a map with name/size/type/tmp_name/error keys
//   - parallel arrays: a map with the same keys whose values are slices (or maps)
//     indexed alike, one entry per file of a multi-file field
//   - a nested map of further fields
//   - a slice of Record values
type UploadSource map[string]any

// ParseUploads normalizes src into a Tree. Flat records become leaves marked as
// transport uploads verified by v; parallel arrays are reshaped index by index;
// nested maps recurse. Keys of a map level are visited in natural order
// ("2" before "10"). An empty source fails with ErrNoData.
func ParseUploads(src UploadSource, v Verifier, opts ...Option) (*Tree, error) {
	if len(src) == 0 {
		return nil, ErrNoData
	}

	leafOpts := append(slices.Clone(opts), WithTransportUpload(v))
	tree, err := parseFields(src, leafOpts)
	if err != nil {
		return nil, err
	}
	if tree.Empty() {
		return nil, ErrNoData
	}
	return tree, nil
}

func parseFields(fields map[string]any, opts []Option) (*Tree, error) {
	node := Node()
	for _, key := range naturalKeys(fields) {
		child, err := parseValue(key, fields[key], opts)
		if err != nil {
			return nil, err
		}
		if child != nil && !child.Empty() {
			node.Set(key, child)
		}
	}
	return node, nil
}

func parseValue(field string, value any, opts []Option) (*Tree, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Record:
		return Leaf(recordToInfo(v, opts)), nil
	case *Record:
		if v == nil {
			return nil, nil
		}
		return Leaf(recordToInfo(*v, opts)), nil
	case []Record:
		node := Node()
		for i, rec := range v {
			node.Set(strconv.Itoa(i), Leaf(recordToInfo(rec, opts)))
		}
		return node, nil
	case UploadSource:
		return parseMap(field, v, opts)
	case map[string]any:
		return parseMap(field, v, opts)
	}

	// Lists of records or maps from decoded JSON and similar loose sources.
	keys, ok := indexKeys(value)
	if !ok {
		return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidField, field, value)
	}
	node := Node()
	for _, key := range keys {
		child, err := parseValue(field+"."+key, elem(value, key), opts)
		if err != nil {
			return nil, err
		}
		if child != nil && !child.Empty() {
			node.Set(key, child)
		}
	}
	return node, nil
}

func parseMap(field string, m map[string]any, opts []Option) (*Tree, error) {
	errValue, isRecord := m[KeyError]
	if !isRecord {
		return parseFields(m, opts)
	}

	// Parallel arrays: reshape into one flat record per index and recurse.
	if keys, ok := indexKeys(errValue); ok {
		node := Node()
		for _, key := range keys {
			sub := make(map[string]any, 5)
			for _, k := range []string{KeyName, KeySize, KeyType, KeyTmpName, KeyError} {
				sub[k] = elem(m[k], key)
			}
			child, err := parseMap(field+"."+key, sub, opts)
			if err != nil {
				return nil, err
			}
			if child != nil && !child.Empty() {
				node.Set(key, child)
			}
		}
		return node, nil
	}

	rec, err := mapToRecord(field, m)
	if err != nil {
		return nil, err
	}
	return Leaf(recordToInfo(rec, opts)), nil
}

func recordToInfo(rec Record, opts []Option) *Info {
	o := append(slices.Clone(opts),
		WithName(rec.Name),
		WithSize(rec.Size),
		WithUploadError(rec.Error),
	)
	return New(rec.TmpPath, o...)
}

func mapToRecord(field string, m map[string]any) (Record, error) {
	size, err := toInt64(m[KeySize])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s.%s: %v", ErrInvalidField, field, KeySize, err)
	}
	code, err := toInt64(m[KeyError])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s.%s: %v", ErrInvalidField, field, KeyError, err)
	}
	return Record{
		Name:    toString(m[KeyName]),
		Size:    size,
		Type:    toString(m[KeyType]),
		TmpPath: toString(m[KeyTmpName]),
		Error:   UploadError(code),
	}, nil
}

// indexKeys returns the keys of a slice (as decimal indexes) or a string-keyed map.
func indexKeys(v any) ([]string, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false // []byte is a scalar
		}
		keys := make([]string, rv.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.SortFunc(keys, compareNatural)
		return keys, true
	}
	return nil, false
}

// elem returns the element stored under key in a slice or map, or nil.
func elem(v any, key string) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		return rv.Index(i).Interface()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		e := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !e.IsValid() {
			return nil
		}
		return e.Interface()
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case UploadError:
		return int64(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, nil
		}
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case fmt.Stringer:
		return strconv.ParseInt(n.String(), 10, 64) // json.Number
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}

func naturalKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareNatural)
	return keys
}

// compareNatural orders decimal keys numerically and everything else lexically,
// numbers first.
func compareNatural(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(ai, bi)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
