package domain

import "time"

// ToolSettings holds per-tool configuration blobs.
type ToolSettings struct {
	LookCreator     map[string]any `json:"lookCreator"`
	Copywriter      map[string]any `json:"copywriter"`
	FinishingStudio map[string]any `json:"finishingStudio"`
}

// DefaultSettings is the admin-managed singleton seeding new users.
type DefaultSettings struct {
	Theme        string
	ToolSettings ToolSettings
	Version      int
	UpdatedBy    string
	UpdatedAt    time.Time
}

// DefaultsPatch carries a partial update; nil fields are left untouched.
type DefaultsPatch struct {
	Theme        *string
	ToolSettings *ToolSettings
}

// UserSettings is the per-user copy of theme and tool settings.
type UserSettings struct {
	UserID       string
	Theme        string
	ToolSettings ToolSettings
	UpdatedAt    time.Time
}

// Themes accepted for default and user settings.
var SupportedThemes = []string{"light", "dark"}

// BuiltinDefaults returns the factory defaults restored by a reset.
func BuiltinDefaults() DefaultSettings {
	return DefaultSettings{
		Theme: "light",
		ToolSettings: ToolSettings{
			LookCreator: map[string]any{
				"systemPrompt": "Create a single hyper-realistic fashion photograph of the provided model wearing every product image exactly as shown.",
				"sceneDescriptions": map[string]any{
					"studio": "Professional studio, seamless light grey backdrop, soft diffused lighting.",
					"beach":  "Sunny beach at golden hour with a warm gradient sky.",
					"city":   "Fashion district street corner in late afternoon light.",
					"forest": "Dense forest with sunbeams filtering through the canopy.",
				},
				"simpleLayeringInstruction": "Layer the products in the order they were provided.",
			},
			Copywriter: map[string]any{
				"systemPrompt": "Write sophisticated e-commerce copy as a single JSON object with a product description, size and fit notes and editor's advice.",
			},
			FinishingStudio: map[string]any{
				"systemPrompt": "Edit the primary image precisely according to the user's instruction and treat additional images as reference only.",
			},
		},
		Version: 1,
	}
}
