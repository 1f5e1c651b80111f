// Package concept defines the canonical shape of a generated social post
// concept and the parsing/normalization that coerces raw model output into
// it. Downstream code only ever sees the canonical shape; every accepted
// input variant is mapped here, at the boundary.
package concept

// Concept is one short-form output unit: one or more size-bounded posts
// plus a call-to-action ending in a link.
type Concept struct {
	Number          int          `json:"number"`
	Title           string       `json:"title"`
	Posts           []string     `json:"posts"`
	CharacterCounts []string     `json:"characterCounts"`
	AhaMoment       string       `json:"ahaMoment"`
	WhatWhyWhere    WhatWhyWhere `json:"whatWhyWhere"`
	CTA             string       `json:"cta"`
	QualityNote     string       `json:"qualityNote"`
}

// WhatWhyWhere captures the distribution framing of a concept. The struct
// is always populated; absent fields carry placeholder text.
type WhatWhyWhere struct {
	What  string `json:"what"`
	Why   string `json:"why"`
	Where string `json:"where"`
}

// Batch is the ordered set of concepts produced from one source document
// in one pipeline run. It is handed to persistence once and never mutated
// after hand-off.
type Batch []*Concept

// Placeholder fills in for What/Why/Where fields the model left blank.
const Placeholder = "Not specified"

// ParseErrorNote marks a sentinel concept that replaced an unparseable
// section. The rest of the batch proceeds around it.
const ParseErrorNote = "parse error"
