package docs

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	bashSetup = "bash setup"
	bashCheck = "bash check"
)

// TestTopics checks that the documentation index is in sync with the topic
// files: every listed topic loads, every topic file is listed.
func TestTopics(t *testing.T) {
	file, err := os.Open("readme.md")
	require.NoError(t, err)
	defer file.Close()

	var topicsInReadme []string
	scanner := bufio.NewScanner(file)
	topicRegex := regexp.MustCompile(`^\*\s+([^:]+):.*$`)
	for scanner.Scan() {
		if matches := topicRegex.FindStringSubmatch(scanner.Text()); len(matches) > 1 {
			topicsInReadme = append(topicsInReadme, strings.TrimSpace(matches[1]))
		}
	}
	require.NoError(t, scanner.Err())

	for _, topic := range topicsInReadme {
		_, err := GetTopic(topic)
		assert.NoError(t, err, topic)
	}

	all, err := GetAllTopics()
	require.NoError(t, err)
	for _, topic := range all {
		assert.True(t, slices.Contains(topicsInReadme, topic), "topic %q is not listed in docs/readme.md", topic)
	}
}

func TestGetTopics(t *testing.T) {
	_, err := GetTopic("nope")
	assert.Error(t, err)

	one, err := GetTopic("dates")
	require.NoError(t, err)
	all, err := GetTopic("*")
	require.NoError(t, err)
	assert.Contains(t, all, one)

	two, err := GetTopics("dates", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(two, one))
}

func TestCodeBlocks(t *testing.T) {
	if testing.Short() {
		t.Skip("builds dterm")
	}
	files, err := filepath.Glob("*.md")
	require.NoError(t, err)

	bin := buildDterm(t, t.TempDir())
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			runBlocks(t, bin, file)
		})
	}
}

// HELPER

// Block represents a fenced code block in the markdown file.
type Block struct {
	Type    string
	Content string
	File    string
	Line    int
}

// buildDterm builds the dterm executable and returns its path.
func buildDterm(t *testing.T, tmp string) string {
	t.Helper()
	output := filepath.Join(tmp, "dterm")
	out, err := exec.Command("go", "build", "-o", output, "../dterm/").CombinedOutput()
	require.NoError(t, err, "failed to build dterm: %s", out)
	return output
}

// parseMarkdown parses a markdown file and returns its test blocks.
func parseMarkdown(t *testing.T, file string) []*Block {
	t.Helper()
	content, err := os.ReadFile(file)
	require.NoError(t, err)

	root := goldmark.DefaultParser().Parse(text.NewReader(content))
	var blocks []*Block
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		lang := string(fcb.Info.Segment.Value(content))
		if lang != bashSetup && lang != bashCheck {
			return ast.WalkContinue, nil
		}
		var blockContent strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			blockContent.Write(line.Value(content))
		}
		blocks = append(blocks, &Block{
			Type:    lang,
			Content: blockContent.String(),
			File:    file,
			Line:    lineNumber(content, fcb.Info.Segment.Start),
		})
		return ast.WalkContinue, nil
	})
	return blocks
}

// lineNumber computes the line number of an AST offset.
func lineNumber(source []byte, offset int) int {
	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}

// runBlocks executes the scenarios of a markdown file. A setup block starts a
// new scenario in a new folder, check blocks must succeed.
func runBlocks(t *testing.T, bin, file string) {
	t.Helper()
	blocks := parseMarkdown(t, file)
	if len(blocks) == 0 {
		return
	}

	path := fmt.Sprintf("PATH=%s%c%s", filepath.Dir(bin), os.PathListSeparator, os.Getenv("PATH"))
	env := append(os.Environ(), path, "DTERM_CACHE_DIR=", "DTERM_LOG_LEVEL=error")
	dir := t.TempDir()
	for _, block := range blocks {
		if block.Type == bashSetup {
			dir = t.TempDir()
		}
		cmd := exec.Command("bash", "-c", "set -e; "+block.Content)
		cmd.Dir = dir
		cmd.Env = env
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Errorf("%s:%d: %s failed: %v with output:\n%s\n", block.File, block.Line, block.Type, err, output)
		}
	}
}
