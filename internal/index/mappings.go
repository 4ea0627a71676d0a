package index

// keyword and text field helpers keep the mapping literals short.
func keyword() map[string]any { return map[string]any{"type": "keyword"} }

func text(analyzer string) map[string]any {
	return map[string]any{
		"type":     "text",
		"analyzer": analyzer,
		"fields":   map[string]any{"raw": map[string]any{"type": "keyword", "ignore_above": 256}},
	}
}

func date() map[string]any { return map[string]any{"type": "date"} }

func mapping(props map[string]any) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"dynamic":    "false",
			"properties": props,
		},
	}
}

var levelMapping = mapping(map[string]any{
	"id":             keyword(),
	"slug":           keyword(),
	"name":           text("french"),
	"name_ar":        text("arabic"),
	"description":    text("french"),
	"description_ar": text("arabic"),
	"order":          map[string]any{"type": "integer"},
	"url":            keyword(),
	"source":         keyword(),
	"collected_at":   date(),
})

var subjectMapping = mapping(map[string]any{
	"id":             keyword(),
	"slug":           keyword(),
	"name":           text("french"),
	"name_ar":        text("arabic"),
	"description":    text("french"),
	"description_ar": text("arabic"),
	"level_id":       keyword(),
	"color":          keyword(),
	"icon":           keyword(),
	"url":            keyword(),
	"source":         keyword(),
	"collected_at":   date(),
})

var contentMapping = mapping(map[string]any{
	"id":             keyword(),
	"slug":           keyword(),
	"title":          text("french"),
	"title_ar":       text("arabic"),
	"description":    text("french"),
	"description_ar": text("arabic"),
	"content_type":   keyword(),
	"subject_id":     keyword(),
	"level_id":       keyword(),
	"url":            keyword(),
	"language":       keyword(),
	"confidence":     map[string]any{"type": "float"},
	"source":         keyword(),
	"collected_at":   date(),
})
