package ai

import (
	"bytes"
	"fmt"
	"text/template"

	"careerkit/internal/config"
)

// CoverLetterInput carries the values substituted into the cover-letter prompt.
type CoverLetterInput struct {
	UserName       string
	JobTitle       string
	CompanyName    string
	JobDescription string
	Resume         string
}

// CustomResumeInput carries the values substituted into the resume prompts.
type CustomResumeInput struct {
	Resume         string
	JobDescription string
}

// DefaultPrompts holds the built-in prompt templates, keyed by task name.
// Templates use text/template syntax over the task's input struct.
var DefaultPrompts = map[string]string{
	config.PromptCoverLetter: `Dear Hiring Manager,

Write a professional and tailored cover letter for {{.UserName}}, applying for the position of {{.JobTitle}} at {{.CompanyName}}. Use the following job description and resume for context:

Job Description:
{{.JobDescription}}

Resume:
{{.Resume}}

Highlight specific skills, achievements, and experiences that align with the job requirements. Make the content ready to submit, avoiding placeholders like '[Your Address]' or '[Recipient's Name]' rather try to pull this data from the resume if available. Include quantifiable accomplishments and a professional tone. Keep the cover letter concise and limited to 3-4 paragraphs. Avoid overly verbose sections.`,

	config.PromptCustomResume: `Customize the following resume to align with this job description:

Resume should follow the McCombs resume format. Customize the content to align with the job description. Ensure there are proper sections and headers as shown in the McCombs resume format. Add or edit descriptions as seen fit in order to make the resume more relevant to the job description. Quantify the accomplishments and experiences in the resume to make it more relevant to the job description. Trim off irrelevant information from the resume if no value is added. End goal is to make the resume more relevant to the job description in order to increase the chance of getting to the next round of interviews. Customized Resume should only be 1 page long at max.

Write section headers in ALL CAPS on their own line. Start every list item with "• ". Put the institution, degree and date of each education entry on one line separated by tab characters.

Job Description:
{{.JobDescription}}

Resume:
{{.Resume}}`,

	config.PromptMcCombsResume: `You are a professional resume writer. Generate resume content that will fit EXACTLY into a McCombs template with these strict sections and formatting:

Output Format Requirements:
1. First line: Full Name only
2. Second line: Address • Phone • Email • LinkedIn (separated by bullets)

3. EDUCATION
SchoolName	Degree, Major	Month Year
• GPA and Honors (if applicable)
• Key coursework (2-3 most relevant)

4. EXPERIENCE
CompanyName, City, State
Position Title, Month Year - Month Year
• Achievement-focused bullet (start with action verb)
• 2-3 bullets per position, quantify results (%, $, #)

5. LEADERSHIP & ACTIVITIES/PROJECTS
Organization/ProjectName, City, State
Role, Month Year - Month Year
• 1-2 impactful bullets per activity

6. SKILLS & INTERESTS
Technical Skills: List relevant technical skills
Languages: List language proficiencies
Interests: Brief list of professional interests

IMPORTANT RULES:
- Each section header must be in ALL CAPS on its own line
- Content MUST fit on one page
- Use ONLY the sections and format specified above
- Use bullet points (•) for all lists
- Tailor content to match job requirements
- Use strong action verbs
- Quantify achievements where possible
- Do not wrap the output in code fences or add commentary

Current Resume:
{{.Resume}}

Job Description:
{{.JobDescription}}

Generate the resume content following the EXACT format above, including section headers.`,
}

// PromptSet resolves and renders the prompt for each task. Overrides come
// from configuration (file content or inline string) and fall back to
// DefaultPrompts.
type PromptSet struct {
	templates map[string]*template.Template
}

// NewPromptSet parses the effective template of every task.
func NewPromptSet(overrides config.LoadedPrompts) (*PromptSet, error) {
	set := &PromptSet{templates: make(map[string]*template.Template, len(DefaultPrompts))}

	for task, fallback := range DefaultPrompts {
		text := resolvePrompt(overrides.Get(task), fallback)
		tmpl, err := template.New(task).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid %s prompt template: %w", task, err)
		}
		set.templates[task] = tmpl
	}

	return set, nil
}

// Render executes the task's template over data.
func (p *PromptSet) Render(task string, data any) (string, error) {
	tmpl, ok := p.templates[task]
	if !ok {
		return "", fmt.Errorf("unknown prompt task: %s", task)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", task, err)
	}
	return buf.String(), nil
}

// resolvePrompt prefers a configured prompt over the built-in one.
func resolvePrompt(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
