package seeder

// Document is a settings record stored as JSON. Views, folders, channels and
// storages carry their numeric id under "id".
type Document map[string]any

type Service struct {
	ID        int64  `yaml:"id"`
	Type      string `yaml:"type"`
	Host      string `yaml:"host"`
	Name      string `yaml:"name"`
	Settings  string `yaml:"settings"`
	Autostart bool   `yaml:"autostart"`
	LoopDelay int    `yaml:"loop_delay"`
}

// Action settings are XML; see the actions endpoint for the allow_if rule.
type Action struct {
	ID       int64  `yaml:"id"`
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Settings string `yaml:"settings"`
}

// Template is the full set of site settings applied by Seed.
type Template struct {
	Actions   []Action            `yaml:"actions"`
	Channels  []Document          `yaml:"channels"`
	Folders   []Document          `yaml:"folders"`
	Services  []Service           `yaml:"services"`
	Views     []Document          `yaml:"views"`
	MetaTypes map[string]Document `yaml:"meta_types"`
	Storages  []Document          `yaml:"storages"`
}

// Defaults returns the settings of a fresh site.
func Defaults() *Template {
	return &Template{
		Actions: []Action{
			{ID: 1, Type: "conv", Name: "Proxy", Settings: `<settings>
	<allow_if>id_folder: 1 | 2 | 3 | 4 | 5 | 6 | 7 | 8 | 9 | 10</allow_if>
	<task mode="ffmpeg">
		<param name="filter:v">"scale=960:540"</param>
		<param name="c:v">"libx264"</param>
		<output storage="asset.proxy_storage" direct="1"><![CDATA[asset.proxy_path]]></output>
	</task>
</settings>`},
		},
		Channels: []Document{
			{"id": int64(1), "name": "Channel 1", "fps": 25.0, "day_start": []any{7, 0}, "send_action": 1},
		},
		Folders: []Document{
			{"id": int64(1), "name": "Movie", "color": "#919191"},
			{"id": int64(2), "name": "Episode", "color": "#b5b5b5"},
			{"id": int64(3), "name": "Story", "color": "#d7d7d7"},
			{"id": int64(4), "name": "Song", "color": "#83c5be"},
			{"id": int64(5), "name": "Fill", "color": "#ffddd2"},
			{"id": int64(6), "name": "Trailer", "color": "#e29578"},
			{"id": int64(7), "name": "Jingle", "color": "#8d99ae"},
			{"id": int64(8), "name": "Graphics", "color": "#d6ccc2"},
			{"id": int64(9), "name": "Commercial", "color": "#fb8500"},
			{"id": int64(10), "name": "Teleshopping", "color": "#ffb703"},
		},
		Services: []Service{
			{ID: 1, Type: "broker", Host: "worker", Name: "broker", Autostart: true, LoopDelay: 5},
			{ID: 2, Type: "watch", Host: "worker", Name: "watch", Autostart: true, LoopDelay: 10},
			{ID: 3, Type: "conv", Host: "worker", Name: "conv", Autostart: true, LoopDelay: 5},
			{ID: 4, Type: "meta", Host: "worker", Name: "meta", Autostart: true, LoopDelay: 5},
		},
		Views: []Document{
			{"id": int64(1), "name": "Main", "position": 0, "folders": []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
			{"id": int64(2), "name": "Commercials", "position": 1, "folders": []any{9, 10}},
		},
		MetaTypes: map[string]Document{
			"title":       {"ns": "m", "type": "string", "fulltext": 8},
			"subtitle":    {"ns": "m", "type": "string", "fulltext": 7},
			"description": {"ns": "m", "type": "text", "fulltext": 6},
			"duration":    {"ns": "f", "type": "timecode"},
			"id_folder":   {"ns": "o", "type": "integer", "editable": false},
			"status":      {"ns": "o", "type": "object_status", "editable": false},
			"genre":       {"ns": "m", "type": "select", "cs": "urn:site:genre"},
		},
		Storages: []Document{},
	}
}
