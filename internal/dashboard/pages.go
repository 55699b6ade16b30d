package dashboard

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type field struct {
	Name  string
	Label string
}

var onboardingFields = []field{
	{"startup_name", "Startup name"},
	{"founder_name", "Founder name"},
	{"stage", "Stage"},
	{"problem_solved", "Problem solved"},
	{"product_service", "Product or service"},
	{"target_market", "Target market"},
	{"revenue_model", "Revenue model"},
	{"funding_status", "Funding status"},
}

type onboardingPage struct {
	Title  string
	Fields []field
}

type dashboardPage struct {
	Title   string
	Profile profileView
	Agents  []Agent
}

// pageSet parses the layout together with one page defining "content".
func pageSet(page string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
}
