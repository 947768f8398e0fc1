package translator

import (
	"encoding/json"
	"fmt"
)

const systemPromptFormat = `You are a professional novel translator (Chinese to English).

CRITICAL INSTRUCTIONS:
1. **NO SUMMARIZATION:** Translate every single sentence. Do not skip scenes.
2. **FORMAT:** Output strict Markdown. Use double newlines for paragraphs.
3. **GLOSSARY:** Strictly follow these terms:
%s

4. **OUTPUT FORMAT:** Return ONLY a valid JSON object. Do not wrap in markdown code blocks.
Structure:
{
    "translated_text": "The full markdown translation...%s",
    "new_terms": [{"original_term": "Name", "english_translation": "Name"}]
}

%s`

// buildSystemPrompt renders the system instructions with the glossary subset
// relevant to this unit. The marker instruction is only issued for the text
// that ends the chapter; intermediate chunks must not carry it.
func buildSystemPrompt(glossaryTerms map[string]string, marker string, wantMarker bool) string {
	glossaryJSON, err := json.Marshal(glossaryTerms)
	if err != nil {
		// A string map cannot fail to encode; keep the prompt well-formed
		// regardless.
		glossaryJSON = []byte("{}")
	}

	markerSample := ""
	markerInstruction := "Do NOT append any end-of-chapter marker: this is a partial chapter segment."
	if wantMarker {
		markerSample = " " + marker
		markerInstruction = fmt.Sprintf("Append %s at the very end of the translated text string.", marker)
	}

	return fmt.Sprintf(systemPromptFormat, glossaryJSON, markerSample, markerInstruction)
}

// buildUserPrompt wraps the raw source text.
func buildUserPrompt(text string) string {
	return "Translate:\n\n" + text
}
