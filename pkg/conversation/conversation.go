// Package conversation builds the fixed-shape message history sent by a
// connectivity check.
package conversation

import "fmt"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Placement selects how the system prompt reaches the model.
type Placement int

const (
	// SystemField passes the prompt in a dedicated request field.
	SystemField Placement = iota
	// SystemTurns embeds the prompt as a leading user turn followed by an
	// assistant acknowledgement.
	SystemTurns
)

func (p Placement) String() string {
	switch p {
	case SystemField:
		return "system-field"
	case SystemTurns:
		return "system-turns"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Script holds the fixed text of a check conversation.
type Script struct {
	DemoUser        string
	DemoAssistant   string
	Final           string
	Acknowledgement string
}

// DefaultScript is the demonstration exchange used by every vendor.
var DefaultScript = Script{
	DemoUser:        "Hello",
	DemoAssistant:   "Hello! I repeat back the message I received. Hello",
	Final:           "Hello! How are you doing?",
	Acknowledgement: "Understood. I will follow those instructions.",
}

// Conversation is the built history. System is only set for SystemField.
type Conversation struct {
	System string `json:"system,omitempty"`
	Turns  []Turn `json:"turns"`
}

// Last returns the final turn, which is always the real user message.
func (c Conversation) Last() Turn {
	if len(c.Turns) == 0 {
		return Turn{}
	}
	return c.Turns[len(c.Turns)-1]
}

// Build assembles the history in the order
// [system turns] → demo user → demo assistant → final user.
// An empty system prompt yields neither a system field nor system turns.
func Build(system string, placement Placement, s Script) Conversation {
	c := Conversation{Turns: make([]Turn, 0, 5)}

	if system != "" {
		switch placement {
		case SystemTurns:
			c.Turns = append(c.Turns,
				Turn{Role: RoleUser, Content: system},
				Turn{Role: RoleAssistant, Content: s.Acknowledgement},
			)
		default:
			c.System = system
		}
	}

	c.Turns = append(c.Turns,
		Turn{Role: RoleUser, Content: s.DemoUser},
		Turn{Role: RoleAssistant, Content: s.DemoAssistant},
		Turn{Role: RoleUser, Content: s.Final},
	)
	return c
}
