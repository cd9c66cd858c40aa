package constant

const (
	// ClassifyPrompt extracts intent, category, language and safety signals
	// from a raw user message in a single call.
	ClassifyPrompt = `Classify this customer support message.

MESSAGE: "%s"

Return JSON only:
{
  "intent": "question | complaint | request_operator | chitchat | other",
  "category": "billing | refund | shipping | account | legal | technical | general",
  "confidence": 0.0-1.0,
  "language": "ISO 639-1 code",
  "safety_violation": boolean,
  "explicit_handoff": boolean
}

Rules:
- explicit_handoff: true only when the user clearly asks for a human operator.
- safety_violation: true for threats, self-harm, abuse, or illegal content.
- confidence reflects how certain you are about intent AND category together.`

	// SentimentPrompt scores the emotional tone of a message.
	SentimentPrompt = `Rate the emotional tone of this customer message.

MESSAGE: "%s"

Return JSON only:
{"label": "neutral | frustrated | angry | positive", "score": 0.0-1.0}

score is the intensity of the label (1.0 = extreme).`

	// GeneratePrompt produces the draft answer from retrieved context.
	GeneratePrompt = `You are a customer support assistant. Answer using ONLY the
provided knowledge base excerpts.

QUESTION: %s

CONTEXT:
%s

Rules:
- Only use facts explicitly present in the context.
- Do not add external knowledge or speculate.
- Answer in the user's language.
- 2-4 sentences, direct and polite.
- If the context does not answer the question, say you do not have
  that information.`

	// GenerateClarifiedPrompt includes answers collected during clarification.
	GenerateClarifiedPrompt = `You are a customer support assistant. Answer using ONLY the
provided knowledge base excerpts.

QUESTION: %s

USER DETAILS:
%s

CONTEXT:
%s

Rules:
- Only use facts explicitly present in the context.
- Take the user details into account when choosing what applies.
- Answer in the user's language.
- 2-4 sentences, direct and polite.`

	// ValidatePrompt checks a draft answer against its source context.
	ValidatePrompt = `Check whether this support answer is grounded in the context.

QUESTION: %s

ANSWER: %s

CONTEXT:
%s

Return JSON only:
{"valid": boolean, "reason": "brief"}

valid is false when the answer states facts absent from the context,
contradicts it, or does not address the question.`
)
