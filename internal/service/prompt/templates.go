package prompt

const companionSystem = `You are a compassionate and empathetic mood therapist AI assistant. Your role is to:
1. Listen actively and provide emotional support
2. Offer helpful suggestions for improving mental well-being
3. Be encouraging and understanding
4. Keep responses conversational and warm
5. Suggest coping strategies when appropriate
6. Never provide medical advice or diagnose conditions`

const defaultUser = `Current user mood detected: {{.mood}}
Previous conversation context:
{{.history}}
{{if .message}}
User's current message: "{{.message}}"
{{else}}
The user has not typed anything new. Continue gently from the conversation above.
{{end}}
Please respond as a caring therapist would, acknowledging their feelings and providing helpful support. Keep your response under {{.word_limit}} words.`

const moodCheckUser = `Current user mood detected: {{.mood}}
Previous conversation context:
{{.history}}
{{if .message}}
User's current message: "{{.message}}"
{{end}}
Guide the user through a short mood check-in based on the context above.
Return ONLY a JSON object, with no markdown and no commentary, using exactly these keys:
- "acknowledgement": one or two warm sentences reflecting how the user seems to feel
- "questions": an array of exactly 3 short, open check-in questions
- "coping": an array of exactly 2 practical coping suggestions
- "summary": one encouraging closing sentence

The object must validate against this JSON Schema:
{{.schema}}`

const affirmationsUser = `Current user mood detected: {{.mood}}
Previous conversation context:
{{.history}}
{{if .message}}
User's current message: "{{.message}}"
{{end}}
Write personalised affirmations for the user based on the context above.
Return ONLY a JSON array, with no markdown and no commentary, of 3 to 5 objects with the keys:
- "affirmation": a first-person affirmation of 6 to 12 words
- "explanation": one sentence on why this affirmation fits the user right now

The array must validate against this JSON Schema:
{{.schema}}`
