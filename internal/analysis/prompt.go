// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"bytes"
	"text/template"
)

// analysisPromptTmpl asks the model for a single JSON object describing the
// protocol and every medication it prescribes. The instruction text and the
// schema example are fixed; only the document text varies.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`
Проанализируйте следующий клинический протокол и извлеките информацию о лекарственных средствах.

Текст протокола:
{{.Text}}

Верните результат в JSON формате:
{
  "protocolSummary": "краткое резюме протокола",
  "mainCondition": "основное заболевание или состояние",
  "drugs": [
    {
      "id": "уникальный идентификатор",
      "name": "название препарата",
      "innEnglish": "международное непатентованное название на английском",
      "innRussian": "международное непатентованное название на русском", 
      "dosage": "дозировка",
      "route": "путь введения",
      "frequency": "режим приема",
      "duration": "длительность",
      "indication": "показание к применению из протокола",
      "targetCondition": "конкретное заболевание/состояние для поиска исследований"
    }
  ]
}

Важно: 
- Для innEnglish используйте точное международное непатентованное название (INN) на английском языке
- Для targetCondition укажите наиболее специфичное заболевание или состояние
- Если препарат не найден, не включайте его в список
`))

// RenderPrompt builds the analysis prompt for one document.
func RenderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
