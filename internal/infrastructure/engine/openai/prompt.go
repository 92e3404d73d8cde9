package openai

import "fmt"

func extractionInstructions(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You process one page of a book written in %[1]s.
Return ONLY a JSON object with exactly these keys:
  "plain_text": the page text in %[1]s, without any markup,
  "annotated_text": the same text with reading annotations where %[1]s readers need them,
  "translated_text": the full translation of the page into %[2]s.
Preserve the original line and paragraph structure. Do not add commentary,
explanations or code fences. If the page contains no readable text, return
empty strings for all three keys.`, sourceLang, targetLang)
}

func imageTaskText(sourceLang, targetLang string) string {
	return fmt.Sprintf("Read the attached page image, transcribe the %s text, annotate it and translate it into %s.", sourceLang, targetLang)
}

func textTaskText(sourceLang, targetLang, rawText string) string {
	return fmt.Sprintf("Annotate the following %s page text and translate it into %s.\n\n%s", sourceLang, targetLang, rawText)
}
