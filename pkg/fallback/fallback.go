// Package fallback produces stand-in assistant replies for when the language
// model cannot answer.
//
// Replies are chosen from an ordered rule table keyed on keyword families in
// the user's text. The first matching rule wins; the last rule always matches
// and echoes a short preview of what the user said.
package fallback

import (
	"fmt"
	"strings"
)

// PreviewLength is the maximum number of characters echoed back by the
// catch-all reply.
const PreviewLength = 50

// Family names the keyword family a piece of user text was classified into.
type Family string

const (
	FamilyEmpty     Family = "empty"
	FamilyGreeting  Family = "greeting"
	FamilyWellBeing Family = "well_being"
	FamilyGratitude Family = "gratitude"
	FamilyFarewell  Family = "farewell"
	FamilyHelp      Family = "help"
	FamilyQuestion  Family = "question"
	FamilyOther     Family = "other"
)

type rule struct {
	family Family
	match  func(lower string) bool
	reply  func(original string) string
}

func containsAny(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

// rules is evaluated top to bottom. Matching is substring based on the
// lower-cased input, so "this" also counts as containing "hi".
var rules = []rule{
	{
		family: FamilyEmpty,
		match:  func(s string) bool { return strings.TrimSpace(s) == "" },
		reply:  fixed("I didn't catch that. Could you please repeat your message?"),
	},
	{
		family: FamilyGreeting,
		match:  containsAny("hello", "hi", "hey", "good morning", "good afternoon"),
		reply:  fixed("Hello! I'm having some technical difficulties with my AI brain, but I'm here to help as best I can."),
	},
	{
		family: FamilyWellBeing,
		match:  containsAny("how are you", "how do you do"),
		reply:  fixed("I'm experiencing some technical issues right now, but thank you for asking! How can I help you?"),
	},
	{
		family: FamilyGratitude,
		match:  containsAny("thank", "thanks"),
		reply:  fixed("You're very welcome! Though I should mention I'm having some connectivity issues at the moment."),
	},
	{
		family: FamilyFarewell,
		match:  containsAny("bye", "goodbye", "see you", "farewell"),
		reply:  fixed("Goodbye! Sorry for any technical difficulties during our conversation. Hope to chat again soon!"),
	},
	{
		family: FamilyHelp,
		match:  containsAny("help", "support", "assist"),
		reply:  fixed("I'd love to help you! I'm currently experiencing some technical difficulties, but I'll do my best to assist."),
	},
	{
		family: FamilyQuestion,
		match:  containsAny("what", "how", "why", "when", "where", "who"),
		reply:  fixed("That's a great question! Unfortunately, I'm having trouble accessing my full knowledge base right now, but please try asking again in a moment."),
	},
	{
		family: FamilyOther,
		match:  func(string) bool { return true },
		reply: func(original string) string {
			return fmt.Sprintf("I heard you mention something about '%s'. I'm experiencing some technical difficulties, but I'm trying to help as best I can.", Preview(original))
		},
	},
}

// Classify returns the keyword family of userText.
func Classify(userText string) Family {
	return match(userText).family
}

// Contextual returns the fallback reply for userText. It never returns an
// empty string.
func Contextual(userText string) string {
	return match(userText).reply(userText)
}

func match(userText string) rule {
	lower := strings.ToLower(userText)
	for _, r := range rules {
		if r.match(lower) {
			return r
		}
	}
	return rules[len(rules)-1]
}

// Preview truncates s to PreviewLength characters, adding "..." when cut.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLength {
		return s
	}
	return string(r[:PreviewLength]) + "..."
}
