package layout

// Config is fixed for an editing session.
type Config struct {
	DocumentWidth    float64 `toml:"document_width" yaml:"document_width" json:"document_width" validate:"gt=0"`
	MarginLeft       float64 `toml:"margin_left" yaml:"margin_left" json:"margin_left" validate:"gte=0"`
	MarginTop        float64 `toml:"margin_top" yaml:"margin_top" json:"margin_top" validate:"gte=0"`
	MarginRight      float64 `toml:"margin_right" yaml:"margin_right" json:"margin_right" validate:"gte=0"`
	ParagraphSpacing float64 `toml:"paragraph_spacing" yaml:"paragraph_spacing" json:"paragraph_spacing" validate:"gte=0"`
	DefaultFontSize  float64 `toml:"default_font_size" yaml:"default_font_size" json:"default_font_size" validate:"gt=0"`
	LineHeight       float64 `toml:"line_height" yaml:"line_height" json:"line_height" validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		DocumentWidth:    800,
		MarginLeft:       80,
		MarginTop:        50,
		MarginRight:      80,
		ParagraphSpacing: 12,
		DefaultFontSize:  16,
		LineHeight:       1.5,
	}
}

// ColumnWidth is the width every paragraph is laid out at.
func (c Config) ColumnWidth() float64 {
	w := c.DocumentWidth - c.MarginLeft - c.MarginRight
	if w < 0 {
		return 0
	}
	return w
}

func (c Config) ColumnLeft() float64  { return c.MarginLeft }
func (c Config) ColumnRight() float64 { return c.DocumentWidth - c.MarginRight }
