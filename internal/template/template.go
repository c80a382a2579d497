// Package template holds the visual styles for the booklet's monthly
// grids. A template is purely a rendering parameter: a name, a
// description and a bundle of style-attribute strings keyed by grid
// part. Externally supplied JSON templates may override or extend the
// built-in set by name; everything about loading them fails soft.
package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appLog "eventcal/internal/log"
)

// DefaultName is the fallback template for unknown lookups.
const DefaultName = "default"

// Styles is the fixed bundle of style-attribute strings a grid renderer
// consumes. Each value is a CSS declaration list.
type Styles struct {
	HeaderStyle    string `json:"headerStyle"`
	TableStyle     string `json:"tableStyle"`
	ThStyle        string `json:"thStyle"`
	TdStyle        string `json:"tdStyle"`
	EventStyle     string `json:"eventStyle"`
	DayNumberStyle string `json:"dayNumberStyle"`
}

// Template is a named visual style for the booklet.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Styles      Styles `json:"styles"`
}

// Registry maps template keys to templates.
type Registry struct {
	templates map[string]Template
}

// NewRegistry returns a registry seeded with the five built-ins.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template, len(builtins))}
	for key, tpl := range builtins {
		r.templates[key] = tpl
	}
	return r
}

// LoadDir merges <name>.json files from dir into the registry,
// overriding built-ins that share a key. A missing directory or a
// malformed file is logged and ignored; built-ins always survive.
func (r *Registry) LoadDir(dir string) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		appLog.Debug("no custom templates directory", "dir", dir)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			appLog.Error("template read failed", err, "file", entry.Name())
			continue
		}
		var tpl Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			appLog.Error("template parse failed", err, "file", entry.Name())
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")
		if tpl.Name == "" {
			tpl.Name = key
		}
		r.templates[key] = tpl
		appLog.Info("custom template loaded", "key", key, "name", tpl.Name)
	}
}

// Get resolves a template key, falling back to the default template
// for unknown or empty keys.
func (r *Registry) Get(key string) Template {
	if tpl, ok := r.templates[key]; ok {
		return tpl
	}
	return r.templates[DefaultName]
}

// Keys returns the registered template keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.templates))
	for key := range r.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// builtins are the five shipped styles. The style strings are the
// rendering contract for the grid HTML; the booklet substitutes the
// per-chip font size into EventStyle at render time.
var builtins = map[string]Template{
	"default": {
		Name:        "Clásica",
		Description: "Diseño tradicional con bordes y colores suaves",
		Styles: Styles{
			HeaderStyle:    "text-align: center; color: #333; margin-bottom: 20px; font-family: Arial, sans-serif; font-size: 24px; font-weight: bold;",
			TableStyle:     "width: 100%; border-collapse: collapse; font-family: Arial, sans-serif; font-size: 12px;",
			ThStyle:        "border: 1px solid #ddd; padding: 8px; background-color: #f8f9fa; text-align: center; font-weight: bold;",
			TdStyle:        "border: 1px solid #ddd; padding: 8px; height: 100px; vertical-align: top;",
			EventStyle:     "font-size: 9px; margin-bottom: 1px; padding: 2px; background-color: #e3f2fd; border-radius: 2px; line-height: 1.2; word-wrap: break-word; overflow-wrap: break-word;",
			DayNumberStyle: "font-weight: bold; margin-bottom: 4px; font-size: 11px; color: #333;",
		},
	},
	"modern": {
		Name:        "Moderno",
		Description: "Diseño contemporáneo con gradientes y colores vibrantes",
		Styles: Styles{
			HeaderStyle:    "text-align: center; color: #2c3e50; margin-bottom: 20px; font-family: 'Segoe UI', Arial, sans-serif; font-size: 26px; font-weight: bold; text-shadow: 1px 1px 2px rgba(0,0,0,0.1);",
			TableStyle:     "width: 100%; border-collapse: collapse; font-family: 'Segoe UI', Arial, sans-serif; font-size: 11px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);",
			ThStyle:        "border: 2px solid #3498db; padding: 12px; background: linear-gradient(135deg, #3498db, #2980b9); color: white; text-align: center; font-weight: bold; font-size: 12px;",
			TdStyle:        "border: 1px solid #bdc3c7; padding: 6px; height: 100px; vertical-align: top; background-color: #fafafa;",
			EventStyle:     "font-size: 8px; margin-bottom: 2px; padding: 3px; background: linear-gradient(135deg, #e74c3c, #c0392b); color: white; border-radius: 3px; line-height: 1.1; word-wrap: break-word; overflow-wrap: break-word; font-weight: 500;",
			DayNumberStyle: "font-weight: bold; margin-bottom: 4px; font-size: 12px; color: #2c3e50; text-align: center;",
		},
	},
	"minimal": {
		Name:        "Minimalista",
		Description: "Diseño limpio y simple con líneas sutiles",
		Styles: Styles{
			HeaderStyle:    "text-align: center; color: #555; margin-bottom: 15px; font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 22px; font-weight: 300; letter-spacing: 1px;",
			TableStyle:     "width: 100%; border-collapse: collapse; font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 10px;",
			ThStyle:        "border: 1px solid #e0e0e0; padding: 10px; background-color: #fafafa; text-align: center; font-weight: 400; color: #666;",
			TdStyle:        "border: 1px solid #f0f0f0; padding: 8px; height: 100px; vertical-align: top; background-color: #ffffff;",
			EventStyle:     "font-size: 8px; margin-bottom: 1px; padding: 2px; background-color: #f8f9fa; border-left: 3px solid #666; line-height: 1.2; word-wrap: break-word; overflow-wrap: break-word; color: #333;",
			DayNumberStyle: "font-weight: 400; margin-bottom: 6px; font-size: 11px; color: #666; text-align: center;",
		},
	},
	"colorful": {
		Name:        "Colorido",
		Description: "Diseño vibrante con colores llamativos y gradientes",
		Styles: Styles{
			HeaderStyle:    "text-align: center; color: #8e44ad; margin-bottom: 20px; font-family: 'Comic Sans MS', Arial, sans-serif; font-size: 24px; font-weight: bold; text-shadow: 2px 2px 4px rgba(142, 68, 173, 0.3);",
			TableStyle:     "width: 100%; border-collapse: collapse; font-family: 'Comic Sans MS', Arial, sans-serif; font-size: 11px;",
			ThStyle:        "border: 2px solid #9b59b6; padding: 12px; background: linear-gradient(135deg, #9b59b6, #8e44ad); color: white; text-align: center; font-weight: bold; font-size: 12px;",
			TdStyle:        "border: 1px solid #d5b8e7; padding: 6px; height: 100px; vertical-align: top; background: linear-gradient(135deg, #f8f9fa, #e8f4f8);",
			EventStyle:     "font-size: 8px; margin-bottom: 2px; padding: 3px; background: linear-gradient(135deg, #e67e22, #d35400); color: white; border-radius: 4px; line-height: 1.1; word-wrap: break-word; overflow-wrap: break-word; font-weight: bold; text-shadow: 1px 1px 1px rgba(0,0,0,0.3);",
			DayNumberStyle: "font-weight: bold; margin-bottom: 4px; font-size: 12px; color: #8e44ad; text-align: center; text-shadow: 1px 1px 2px rgba(142, 68, 173, 0.2);",
		},
	},
	"minimal-pink": {
		Name:        "Minimal Rosado",
		Description: "Diseño minimalista con colores suaves y tipografía redondeada en tonos rosados y beige.",
		Styles: Styles{
			HeaderStyle:    "text-align: center; color: #d49696; margin-bottom: 24px; font-family: 'Fredoka One', 'Arial Rounded MT Bold', Arial, sans-serif; font-size: 48px; font-weight: bold; background: none;",
			TableStyle:     "width: 100%; border-collapse: collapse; font-family: 'Arial Rounded MT Bold', Arial, sans-serif; font-size: 16px; background: none;",
			ThStyle:        "border: 1px solid #eedee4; padding: 10px; background: #eecaca; color: #864f4f; text-align: center; font-weight: 700; font-size: 14px; letter-spacing: 0.3px;",
			TdStyle:        "border: 1px solid #e6e2dd; padding: 8px; height: 85px; vertical-align: top; background: #fff7ee;",
			EventStyle:     "font-size: 10px; margin-bottom: 2px; padding: 3px; background: #d49696; color: white; border-radius: 4px; line-height: 1.1; word-wrap: break-word; overflow-wrap: break-word;",
			DayNumberStyle: "font-weight: bold; margin-bottom: 4px; font-size: 13px; color: #d49696; text-align: right; letter-spacing: 1px;",
		},
	},
}
