package library

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"formarter/compliance/pkg/checklist"
)

// UncategorizedCollection holds documents.json entries without a case id.
const UncategorizedCollection = "uncategorized"

// savedDocument is one entry of a documents.json file. Fields the engine
// does not use (sections, spacing, annotations) are ignored.
type savedDocument struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ModifiedAt       string `json:"modified_at"`
	TextContent      string `json:"text_content"`
	CaseProfileIndex int    `json:"case_profile_index"`
	CaseID           string `json:"case_id"`
	CustomTitle      string `json:"custom_title"`
}

type documentsFile struct {
	Documents []savedDocument `json:"documents"`
}

// LoadDocumentsJSON reads a documents.json file into a MemoryLibrary.
// Documents are grouped into collections by case id ("case-178"); entries
// without one go to UncategorizedCollection. has_case_profile is set when
// a case profile or case id is recorded; is_ex_parte and is_urgent are
// read from the document's custom title.
func LoadDocumentsJSON(path string) (*MemoryLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents file: %w", err)
	}

	var file documentsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse documents file %s: %w", path, err)
	}

	lib := NewMemoryLibrary()
	docs := file.Documents
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		collection := UncategorizedCollection
		if d.CaseID != "" {
			collection = "case-" + d.CaseID
		}
		title := strings.ToLower(d.CustomTitle)
		doc := &Document{
			ID:         d.ID,
			Name:       d.Name,
			Collection: collection,
			Text:       d.TextContent,
			Context: &checklist.Context{
				IsExParte:      strings.Contains(title, "ex parte"),
				IsUrgent:       strings.Contains(title, "emergency") || strings.Contains(title, "urgent"),
				HasCaseProfile: d.CaseProfileIndex > 0 || d.CaseID != "",
			},
		}
		if t, err := time.Parse("2006-01-02T15:04:05.999999", d.ModifiedAt); err == nil {
			doc.ModifiedAt = t
		}
		lib.Add(doc)
	}
	return lib, nil
}
