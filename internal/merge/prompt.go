package merge

// reconcilePrompt captures the instructions sent with every per-page
// reconciliation request. Keep updates centralized here so it is easy to
// tweak without hunting through call sites.
const reconcilePrompt = `You are reconciling multiple independent transcriptions of the same page of a document.

You will receive the candidate transcriptions as numbered sources. Produce one transcription of the page:

- Compare the fragments and prefer wording that the sources agree on.
- Where the sources disagree and you cannot tell which is correct, pick the most plausible reading and mark the alternatives inline as HTML comments: <!-- ALT: the other reading -->
- Preserve the structural Markdown formatting (headings, lists, tables) from whichever source renders the page structure best.
- Output only the transcription itself. No preamble, no explanations, no commentary.`

// reconcileTemperature biases the endpoint toward deterministic output so
// repeated merges of the same sources stay consistent.
const reconcileTemperature = 0.2
