package ocr

// Engine defines the interface for text recognition backends. An
// engine takes a receipt image or PDF and returns the raw transcript;
// turning that transcript into structured fields is the extraction
// package's job.
type Engine interface {
	// RecognizeText returns a plain-text transcript of the document,
	// line order preserved.
	RecognizeText(imageData []byte, contentType string) (string, error)
	// Close closes the engine and releases resources
	Close() error
}

// transcribePrompt is the shared prompt used by all vision-model
// backends. The backends must not interpret the receipt; structured
// extraction happens downstream against the verbatim text.
const transcribePrompt = `You are transcribing a photographed receipt or invoice.

Read every piece of text in the image, top to bottom, and return it as plain text:
- One output line per printed line on the receipt, in the original order
- Keep the original spelling, casing, prices and currency symbols exactly as printed
- Keep column spacing between an item description and its price as whitespace
- Do not summarize, translate, annotate or reformat anything
- Do not wrap the output in markdown code blocks

Return only the transcript text.`
