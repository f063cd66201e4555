package repl

import (
	"fmt"
	"strings"
)

// ColorScheme defines the color configuration for a session.
type ColorScheme struct {
	Name         string `json:"name" yaml:"name"`
	Prompt       Color  `json:"prompt" yaml:"prompt"`             // Primary prompt
	Continuation Color  `json:"continuation" yaml:"continuation"` // Continuation prompt
	Input        Color  `json:"input" yaml:"input"`               // Echoed keystrokes
	Output       Color  `json:"output" yaml:"output"`             // Evaluator output lines
	Error        Color  `json:"error" yaml:"error"`               // Error lines
}

// Color represents an RGB color with optional formatting.
type Color struct {
	R    uint8 `json:"r" yaml:"r"`
	G    uint8 `json:"g" yaml:"g"`
	B    uint8 `json:"b" yaml:"b"`
	Bold bool  `json:"bold" yaml:"bold"`
}

// ThemeDefault is the default color scheme with green prompts and white text
var ThemeDefault = &ColorScheme{
	Name:         "default",
	Prompt:       Color{R: 0, G: 255, B: 0, Bold: true},
	Continuation: Color{R: 0, G: 175, B: 0, Bold: false},
	Input:        Color{R: 255, G: 255, B: 255, Bold: true},
	Output:       Color{R: 200, G: 200, B: 200, Bold: false},
	Error:        Color{R: 255, G: 85, B: 85, Bold: true},
}

// ThemeDark is a dark theme with light blue prompts and off-white text
var ThemeDark = &ColorScheme{
	Name:         "dark",
	Prompt:       Color{R: 102, G: 217, B: 239, Bold: true},
	Continuation: Color{R: 98, G: 114, B: 164, Bold: false},
	Input:        Color{R: 248, G: 248, B: 242, Bold: false},
	Output:       Color{R: 189, G: 147, B: 249, Bold: false},
	Error:        Color{R: 255, G: 85, B: 85, Bold: true},
}

// ThemeSolarizedDark is the Solarized Dark color scheme
var ThemeSolarizedDark = &ColorScheme{
	Name:         "solarized-dark",
	Prompt:       Color{R: 133, G: 153, B: 0, Bold: true},
	Continuation: Color{R: 88, G: 110, B: 117, Bold: false},
	Input:        Color{R: 147, G: 161, B: 161, Bold: false},
	Output:       Color{R: 131, G: 148, B: 150, Bold: false},
	Error:        Color{R: 220, G: 50, B: 47, Bold: true},
}

// ThemeAccessible is a colorblind-safe theme with high contrast
var ThemeAccessible = &ColorScheme{
	Name:         "accessible",
	Prompt:       Color{R: 0, G: 114, B: 178, Bold: true},
	Continuation: Color{R: 86, G: 180, B: 233, Bold: false},
	Input:        Color{R: 255, G: 255, B: 255, Bold: false},
	Output:       Color{R: 204, G: 204, B: 204, Bold: false},
	Error:        Color{R: 230, G: 159, B: 0, Bold: true},
}

// ThemeDracula is the Dracula color scheme
var ThemeDracula = &ColorScheme{
	Name:         "dracula",
	Prompt:       Color{R: 255, G: 121, B: 198, Bold: true},
	Continuation: Color{R: 98, G: 114, B: 164, Bold: false},
	Input:        Color{R: 248, G: 248, B: 242, Bold: false},
	Output:       Color{R: 139, G: 233, B: 253, Bold: false},
	Error:        Color{R: 255, G: 85, B: 85, Bold: true},
}

// ThemeMonokai is the Monokai color scheme
var ThemeMonokai = &ColorScheme{
	Name:         "monokai",
	Prompt:       Color{R: 249, G: 38, B: 114, Bold: true},
	Continuation: Color{R: 117, G: 113, B: 94, Bold: false},
	Input:        Color{R: 248, G: 248, B: 242, Bold: false},
	Output:       Color{R: 166, G: 226, B: 46, Bold: false},
	Error:        Color{R: 253, G: 151, B: 31, Bold: true},
}

var themes = []*ColorScheme{
	ThemeDefault,
	ThemeDark,
	ThemeSolarizedDark,
	ThemeAccessible,
	ThemeDracula,
	ThemeMonokai,
}

// ThemeByName looks up a built-in theme by name, ignoring case. The names
// "" and "none" return a nil scheme, which disables colors.
func ThemeByName(name string) (*ColorScheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return nil, nil
	}
	for _, theme := range themes {
		if theme.Name == name {
			return theme, nil
		}
	}
	return nil, fmt.Errorf("unknown theme: %s", name)
}

// ToANSI converts a Color to an ANSI escape sequence.
func (c Color) ToANSI() string {
	var codes []string

	// Bold formatting comes first
	if c.Bold {
		codes = append(codes, "1")
	}

	// RGB color (true color support)
	codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", c.R, c.G, c.B))

	return fmt.Sprintf("\x1b[%sm", strings.Join(codes, ";"))
}

// Reset returns the ANSI reset sequence.
func Reset() string {
	return "\x1b[0m"
}
