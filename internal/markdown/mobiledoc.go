package markdown

import (
	"encoding/json"
	"fmt"
	"strings"
)

// card section type in the mobiledoc section list.
const mobiledocCardSection = 10

var markdownCardNames = map[string]struct{}{
	"markdown":      {},
	"card-markdown": {},
}

type mobiledocDoc struct {
	Cards    [][]json.RawMessage `json:"cards"`
	Sections [][]json.RawMessage `json:"sections"`
}

// MobiledocMarkdown returns the markdown cards of a mobiledoc document joined
// in section order. ok is false when the document has no markdown card.
func MobiledocMarkdown(doc string) (string, bool, error) {
	if strings.TrimSpace(doc) == "" {
		return "", false, nil
	}

	var parsed mobiledocDoc
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return "", false, fmt.Errorf("mobiledoc decode: %w", err)
	}

	cards := make([]string, len(parsed.Cards))
	isMarkdown := make([]bool, len(parsed.Cards))
	for i, card := range parsed.Cards {
		if len(card) < 2 {
			continue
		}
		var name string
		if err := json.Unmarshal(card[0], &name); err != nil {
			continue
		}
		if _, ok := markdownCardNames[name]; !ok {
			continue
		}
		var payload struct {
			Markdown string `json:"markdown"`
		}
		if err := json.Unmarshal(card[1], &payload); err != nil {
			return "", false, fmt.Errorf("mobiledoc card %d: %w", i, err)
		}
		cards[i] = payload.Markdown
		isMarkdown[i] = true
	}

	var parts []string
	for _, section := range parsed.Sections {
		if len(section) < 2 {
			continue
		}
		var kind, index int
		if json.Unmarshal(section[0], &kind) != nil || kind != mobiledocCardSection {
			continue
		}
		if json.Unmarshal(section[1], &index) != nil || index < 0 || index >= len(cards) {
			continue
		}
		if isMarkdown[index] {
			parts = append(parts, strings.TrimRight(cards[index], "\n"))
		}
	}
	if len(parts) == 0 {
		return "", false, nil
	}
	return strings.Join(parts, "\n\n"), true, nil
}
