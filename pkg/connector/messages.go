package connector

import "strings"

// Message ids. The host localizes by id; Default is the English text.
const (
	MessageNotAuthenticated = "badParam.access_token.empty"
	MessageHTTPError        = "error.httpError.general"
	MessageUnexpectedJSON   = "error.unexpectedIntercomJson.general"
)

// Message is a user-facing result in place of a table.
type Message struct {
	ID      string            `json:"id"`
	Default string            `json:"-"`
	Args    map[string]string `json:"-"`
}

// String renders Default with each {name} placeholder replaced from Args.
func (m Message) String() string {
	if len(m.Args) == 0 {
		return m.Default
	}
	pairs := make([]string, 0, 2*len(m.Args))
	for k, v := range m.Args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(m.Default)
}

func notAuthenticatedMessage() Message {
	return Message{
		ID:      MessageNotAuthenticated,
		Default: "Please sign in to Intercom",
	}
}

func httpErrorMessage(err error) Message {
	return Message{
		ID:      MessageHTTPError,
		Default: "Error querying Intercom: {error}",
		Args:    map[string]string{"error": err.Error()},
	}
}

func unexpectedJSONMessage(err error) Message {
	return Message{
		ID:      MessageUnexpectedJSON,
		Default: "Error handling Intercom response: {error}",
		Args:    map[string]string{"error": err.Error()},
	}
}
