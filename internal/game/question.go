package game

import "math/rand"

// Question is a single trivia question. The bank is fixed at startup and
// questions are never mutated afterwards.
type Question struct {
	ID            int
	Text          string
	Options       []string
	CorrectOption int // index into Options
	Category      string
}

// View returns the client-facing projection of the question, without the
// correct option index.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:       q.ID,
		Question: q.Text,
		Options:  q.Options,
		Category: q.Category,
	}
}

// pickQuestions samples n questions from the bank without replacement, in
// random order. If the bank holds fewer than n questions the whole bank is
// returned, still shuffled.
func pickQuestions(bank []Question, n int, rng *rand.Rand) []Question {
	if n > len(bank) {
		n = len(bank)
	}
	picked := make([]Question, 0, n)
	for _, i := range rng.Perm(len(bank))[:n] {
		picked = append(picked, bank[i])
	}
	return picked
}

// DefaultBank is the built-in question set served when no custom bank is
// configured.
var DefaultBank = []Question{
	{ID: 1, Text: "What is React?", Options: []string{"Framework", "Library", "Language", "Database"}, CorrectOption: 1, Category: "Frontend"},
	{ID: 2, Text: "What is TypeScript?", Options: []string{"A superset of JavaScript", "Framework", "Database", "Operating system"}, CorrectOption: 0, Category: "Programming"},
	{ID: 3, Text: "What is Astro?", Options: []string{"Framework", "Library", "Build tool", "All of the above"}, CorrectOption: 3, Category: "Web Development"},
	{ID: 4, Text: "Which HTTP status code means 'Not Found'?", Options: []string{"301", "404", "500", "418"}, CorrectOption: 1, Category: "Web Development"},
	{ID: 5, Text: "What does SQL stand for?", Options: []string{"Standard Query Logic", "Structured Question List", "Structured Query Language", "Simple Query Layer"}, CorrectOption: 2, Category: "Databases"},
	{ID: 6, Text: "Which of these is a message broker?", Options: []string{"Kafka", "Nginx", "Terraform", "Webpack"}, CorrectOption: 0, Category: "Backend"},
	{ID: 7, Text: "What does Docker package an application into?", Options: []string{"A virtual machine", "A container image", "A zip archive", "A kernel module"}, CorrectOption: 1, Category: "DevOps"},
	{ID: 8, Text: "Which data structure gives O(1) average lookup by key?", Options: []string{"Linked list", "Binary tree", "Hash map", "Stack"}, CorrectOption: 2, Category: "Computer Science"},
	{ID: 9, Text: "What is Kubernetes used for?", Options: []string{"Container orchestration", "CSS preprocessing", "Unit testing", "Image compression"}, CorrectOption: 0, Category: "DevOps"},
	{ID: 10, Text: "Which company created the Go programming language?", Options: []string{"Microsoft", "Mozilla", "Google", "Apple"}, CorrectOption: 2, Category: "Programming"},
	{ID: 11, Text: "What does REST stand for?", Options: []string{"Remote Execution Standard Transfer", "Representational State Transfer", "Reliable Event Stream Transport", "Resource Exchange over Secure Tunnels"}, CorrectOption: 1, Category: "Backend"},
	{ID: 12, Text: "Which protocol does WebSocket upgrade from?", Options: []string{"FTP", "SMTP", "HTTP", "SSH"}, CorrectOption: 2, Category: "Networking"},
	{ID: 13, Text: "What is Redis primarily used as?", Options: []string{"An in-memory data store", "A web framework", "A CSS library", "A compiler"}, CorrectOption: 0, Category: "Databases"},
	{ID: 14, Text: "What does CI in CI/CD stand for?", Options: []string{"Code Inspection", "Continuous Integration", "Container Isolation", "Compiled Interface"}, CorrectOption: 1, Category: "DevOps"},
	{ID: 15, Text: "Which of these is NOT a JavaScript runtime?", Options: []string{"Node.js", "Deno", "Bun", "Flask"}, CorrectOption: 3, Category: "Programming"},
	{ID: 16, Text: "What does a reverse proxy do?", Options: []string{"Forwards client requests to backend servers", "Compiles source code", "Encrypts databases", "Schedules cron jobs"}, CorrectOption: 0, Category: "Networking"},
	{ID: 17, Text: "Which git command combines another branch's history into the current one?", Options: []string{"git stash", "git merge", "git blame", "git bisect"}, CorrectOption: 1, Category: "Tools"},
	{ID: 18, Text: "What is the default port for HTTPS?", Options: []string{"80", "8080", "443", "22"}, CorrectOption: 2, Category: "Networking"},
	{ID: 19, Text: "Which pattern decouples event producers from consumers?", Options: []string{"Singleton", "Publish/subscribe", "Factory", "Decorator"}, CorrectOption: 1, Category: "Architecture"},
	{ID: 20, Text: "What does ACID describe in databases?", Options: []string{"Transaction guarantees", "Index types", "Query syntax", "Replication modes"}, CorrectOption: 0, Category: "Databases"},
}
