package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-reader/internal/chat"
)

func TestHeadings(t *testing.T) {
	src := "# 论文精读报告\n\nintro\n\n## 核心 **贡献**\n\n- a\n\n### Results `table`\n\nSetext\n------\n"
	assert.Equal(t, []string{"论文精读报告", "核心 贡献", "Results table", "Setext"}, Headings(src))
	assert.Empty(t, Headings("no headings here"))
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("**bold** and | a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")

	out, err = Markdown("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestTranscriptEscapesUserText(t *testing.T) {
	user := "<script>alert(1)</script>"
	reply := "## Answer\n\ntext"
	out, err := Transcript([]chat.Turn{
		{User: &user, Assistant: &reply},
		chat.AssistantOnly("❌ 请求失败：boom"),
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "<h2>Answer</h2>")
	assert.Contains(t, out, "请求失败")
}
