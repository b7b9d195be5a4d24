package assistant

import "strings"

// contextIntros prefix the fallback reply when the widget reports which
// page the visitor is on.
var contextIntros = map[string]string{
	"projects": "You're looking at the projects page. ",
	"blog":     "You're browsing the blog. ",
	"games":    "You're in the games section. ",
}

type keywordRule struct {
	keywords []string
	reply    string
}

// fallbackRules are checked in order; the first rule with a matching
// keyword wins.
var fallbackRules = []keywordRule{
	{
		keywords: []string{"hello", "hi", "hey"},
		reply:    "Hey there! I'm the site assistant. Ask me about the projects, the blog, or how to get in touch.",
	},
	{
		keywords: []string{"who", "about"},
		reply:    "This is the personal site of a backend developer who enjoys building realtime systems. Check the projects page for a sample of the work.",
	},
	{
		keywords: []string{"experience", "work", "job", "career"},
		reply:    "Work history lives on the about page, and the repositories on the projects page show what that experience looks like in code.",
	},
	{
		keywords: []string{"tech", "stack", "language", "golang", "go "},
		reply:    "The backend here is written in Go with SQLite storage and WebSockets for the trivia game. The blog is plain markdown.",
	},
	{
		keywords: []string{"contact", "email", "reach", "meeting", "schedule", "call"},
		reply:    "You can book a meeting through the schedule form, it just needs a quick verification code first.",
	},
	{
		keywords: []string{"game", "trivia", "play"},
		reply:    "The games section has a realtime trivia game. Pick a name, join a room and a round starts once enough players show up.",
	},
	{
		keywords: []string{"blog", "post", "article", "read"},
		reply:    "The blog covers backend topics, mostly Go and realtime systems. There's an RSS feed at /rss.xml if you want to follow along.",
	},
	{
		keywords: []string{"help", "what can you"},
		reply:    "I can point you at the projects, the blog, the trivia game, or help you book a meeting. What are you after?",
	},
}

const defaultFallback = "I'm not sure about that one. Try asking about the projects, the blog, the trivia game, or how to get in touch."

// fallbackReply answers from keyword rules when no upstream model is
// available.
func fallbackReply(message, pageContext string) string {
	lower := strings.ToLower(message)

	reply := defaultFallback
	for _, rule := range fallbackRules {
		if containsAny(lower, rule.keywords) {
			reply = rule.reply
			break
		}
	}
	if intro, ok := contextIntros[pageContext]; ok {
		return intro + reply
	}
	return reply
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
