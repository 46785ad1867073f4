// Package validation checks uploaded files against size, extension, MIME type and
// image dimension rules.
//
// A Chain is an ordered list of rules. Validate walks a file.Tree, checks every leaf
// and collects every failure instead of stopping at the first one:
//
//	chain, err := validation.New(
//		validation.Named("extension", "jpg", "png"),
//		validation.Named("size", "2M"),
//		validation.Use(validation.NewDimension(1920, 1080, 0, 0)),
//	)
//	if err != nil {
//		return err // unknown rule name or bad arguments
//	}
//	if !chain.Validate(tree) {
//		for _, msg := range chain.Errors() {
//			log.Println(msg)
//		}
//	}
//
// Chains can also be built from a map (FromMap) or a YAML document (ParseYAML).
// Rule names are resolved against a fixed registry: size/filesize, extension/ext,
// mimetype/mime and dimension. Anything else fails with ErrRuleNotSupported.
//
// Files whose transport reported an error produce a single violation describing the
// error and are not checked against the rules.
//
// Every Violation carries a TranslationKey and TranslationValues so messages can be
// localized by the caller.
package validation
