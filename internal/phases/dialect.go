package phases

// Dialect describes one target markup dialect: the generation instructions
// injected into the model prompt and the marker pair the validation phase
// balances. Pure configuration data, injected through Deps rather than
// referenced as globals.
type Dialect struct {
	Name         string
	Instructions string
	OpenMarker   string
	CloseMarker  string
}

// BuiltinDialects returns the dialects the platform generates for.
func BuiltinDialects() map[string]Dialect {
	return map[string]Dialect{
		"divi": {
			Name:         "divi",
			Instructions: "Produce Divi builder shortcodes. Every section opens with [et_pb_section] and closes with [/et_pb_section]. Use [et_pb_row] and [et_pb_column] for layout and [et_pb_text] for copy.",
			OpenMarker:   "[et_pb_section",
			CloseMarker:  "[/et_pb_section]",
		},
		"gutenberg": {
			Name:         "gutenberg",
			Instructions: "Produce Gutenberg block markup. Every block opens with an HTML comment of the form <!-- wp:NAME --> and closes with <!-- /wp:NAME -->. Use core/group for sections and core/paragraph for copy.",
			OpenMarker:   "<!-- wp:",
			CloseMarker:  "<!-- /wp:",
		},
		"html": {
			Name:         "html",
			Instructions: "Produce clean semantic HTML5. Wrap each content section in a <section> element with a descriptive class name. No inline styles.",
			OpenMarker:   "<section",
			CloseMarker:  "</section>",
		},
	}
}
