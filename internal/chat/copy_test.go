package chat

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepCopyMessages(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, deepCopyMessages(nil))
	})

	t.Run("copies are independent", func(t *testing.T) {
		t.Parallel()

		original := []*ai.Message{
			ai.NewUserMessage(ai.NewTextPart("hello")),
			{
				Role: ai.RoleModel,
				Content: []*ai.Part{
					{
						Kind: ai.PartToolRequest,
						ToolRequest: &ai.ToolRequest{
							Name:  "read_table",
							Input: map[string]any{"table": "users"},
						},
					},
				},
				Metadata: map[string]any{"k": "v"},
			},
		}

		copied := deepCopyMessages(original)
		require.Len(t, copied, 2)

		// Mutating the copy must not reach the original.
		copied[0].Content[0].Text = "mutated"
		assert.Equal(t, "hello", original[0].Content[0].Text)

		copied[1].Metadata["k"] = "changed"
		assert.Equal(t, "v", original[1].Metadata["k"])

		// Tool request fields are carried over.
		tr := copied[1].Content[0].ToolRequest
		require.NotNil(t, tr)
		assert.Equal(t, "read_table", tr.Name)
		assert.NotSame(t, original[1].Content[0].ToolRequest, tr)
	})
}
