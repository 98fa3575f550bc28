package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_SystemField(t *testing.T) {
	c := Build("Be terse.", SystemField, DefaultScript)

	assert.Equal(t, "Be terse.", c.System)
	require.Len(t, c.Turns, 3)
	assert.Equal(t, Turn{Role: RoleUser, Content: DefaultScript.DemoUser}, c.Turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: DefaultScript.DemoAssistant}, c.Turns[1])
	assert.Equal(t, Turn{Role: RoleUser, Content: DefaultScript.Final}, c.Turns[2])
}

func TestBuild_SystemTurns(t *testing.T) {
	c := Build("Be terse.", SystemTurns, DefaultScript)

	assert.Empty(t, c.System)
	require.Len(t, c.Turns, 5)
	assert.Equal(t, Turn{Role: RoleUser, Content: "Be terse."}, c.Turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: DefaultScript.Acknowledgement}, c.Turns[1])
	assert.Equal(t, RoleUser, c.Turns[2].Role)
	assert.Equal(t, RoleAssistant, c.Turns[3].Role)
	assert.Equal(t, Turn{Role: RoleUser, Content: DefaultScript.Final}, c.Last())
}

func TestBuild_EmptySystemPrompt(t *testing.T) {
	for _, p := range []Placement{SystemField, SystemTurns} {
		c := Build("", p, DefaultScript)
		assert.Empty(t, c.System, p.String())
		assert.Len(t, c.Turns, 3, p.String())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	for _, p := range []Placement{SystemField, SystemTurns} {
		a := Build("prompt", p, DefaultScript)
		b := Build("prompt", p, DefaultScript)
		assert.Equal(t, a, b)
	}
}

func TestBuild_CustomScript(t *testing.T) {
	s := Script{DemoUser: "ping", DemoAssistant: "pong", Final: "ping?", Acknowledgement: "ok"}
	c := Build("sys", SystemTurns, s)
	got := make([]string, 0, len(c.Turns))
	for _, turn := range c.Turns {
		got = append(got, turn.Content)
	}
	assert.Equal(t, []string{"sys", "ok", "ping", "pong", "ping?"}, got)
}

func TestPlacementString(t *testing.T) {
	assert.Equal(t, "system-field", SystemField.String())
	assert.Equal(t, "system-turns", SystemTurns.String())
	assert.Equal(t, "placement(7)", Placement(7).String())
}

func TestLast_Empty(t *testing.T) {
	assert.Equal(t, Turn{}, Conversation{}.Last())
}
