package llm

const DefaultSystemTemplate = "You are an expert educator who writes accurate quizzes from encyclopedia articles. You always answer with valid JSON and nothing else."

const DefaultQuizTemplate = `Create a multiple-choice quiz about the Wikipedia article below.
Write between 5 and 10 questions that can be answered from the article text alone.
Every question must have exactly 4 options and exactly one correct answer.
The correct_answer value must repeat the text of the correct option verbatim.
Mix easy, medium and hard questions and explain each answer in one sentence.

Respond with JSON only, in this shape:
{"questions": [{"question": "...", "options": [{"text": "..."}], "correct_answer": "...", "explanation": "...", "difficulty": "easy"}]}

ARTICLE TITLE:
{{.title}}

SUMMARY:
{{.summary}}

SECTIONS:
{{.sections}}

ENTITIES:
{{.entities}}

FULL TEXT:
{{.text}}
`

const DefaultTopicsTemplate = `Suggest related topics a reader of the Wikipedia article below should explore next.
Give between 5 and 8 topics, each the title of another Wikipedia article.

Respond with JSON only, in this shape:
{"topics": ["...", "..."]}

ARTICLE TITLE:
{{.title}}

SUMMARY:
{{.summary}}

SECTIONS:
{{.sections}}

FULL TEXT:
{{.text}}
`

var promptInputs = []string{"title", "summary", "sections", "entities", "text"}
