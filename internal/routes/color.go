package routes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
)

// ParseHexColor parses #rrggbb or #rrggbbaa. Alpha defaults to 255.
func ParseHexColor(s string) (core.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return core.Color{}, fmt.Errorf("invalid color %q: want #rrggbb or #rrggbbaa", s)
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return core.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	c := core.Color{A: 255}
	if len(s) == 8 {
		c.A = uint8(v & 0xff)
		v >>= 8
	}
	c.B = uint8(v & 0xff)
	c.G = uint8(v >> 8 & 0xff)
	c.R = uint8(v >> 16 & 0xff)
	return c, nil
}

// HexColor formats a color as #rrggbbaa.
func HexColor(c core.Color) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func decodeProperties(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("invalid properties: %w", err)
	}
	return props, nil
}

func encodeProperties(props map[string]any) (datatypes.JSON, error) {
	if props == nil {
		return nil, nil
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("invalid properties: %w", err)
	}
	return datatypes.JSON(raw), nil
}
