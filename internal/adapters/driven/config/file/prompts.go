package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You answer questions using only the documents retrieved from the knowledge base.
If the context does not contain the answer, say so instead of guessing.
Do not use markdown tables in responses.

## Citation Format (IMPORTANT):
When citing sources, wrap citations in parentheses using this exact format:
- Single page: (FILENAME.pdf, p. 42)
- Page range: (FILENAME.pdf, pp. 42-45)

Examples:
- "The attitude-shifting rules cover this (GRR6610_TheExpanse_TUE_Core.pdf, pp. 123-127)."
- "See the grappling rules for details (GRR6610_TheExpanse_TUE_Core.pdf, p. 89)."

ALWAYS include the full filename with the .pdf extension, exactly as it appears in the context.
Never use informal references like "the Core Rulebook" or "pages 17-19" without the filename.
Only cite pages that appear in the context. Never invent page numbers.`,

	driven.PromptAnswerUser: `Context:
%s

Question: %s`,
}

// requiredVerbs is the number of %s placeholders a template must keep.
// A customised file with the wrong count falls back to the default.
var requiredVerbs = map[string]int{
	driven.PromptAnswerSystem: 0,
	driven.PromptAnswerUser:   2,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to <DefaultDir>/prompts.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get config directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err == nil {
		err = checkVerbs(name, prompt)
	}
	if err != nil {
		logger.Debug("Prompt %q: %v, using default", name, err)
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// checkVerbs rejects a template whose %s count differs from what callers pass.
func checkVerbs(name, prompt string) error {
	want, ok := requiredVerbs[name]
	if !ok {
		return nil
	}
	if got := strings.Count(prompt, "%s"); got != want {
		return fmt.Errorf("expected %d %%s placeholders, found %d", want, got)
	}
	return nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# sercha-rag Prompts

This directory contains the prompts used when answering questions.

## Files

- ` + "`answer_system.txt`" + ` - System prompt, including the citation format rules
- ` + "`answer_user.txt`" + ` - Wraps the retrieved context and the question

## Customisation

Edit any file to customise the answers. Changes take effect on the next
command, and a running MCP server picks them up as soon as the file is saved.

Keep the citation format in answer_system.txt: citations of the form
(FILENAME.pdf, p. 42) are turned into catalog links.

## Format Placeholders

answer_user.txt must contain exactly two ` + "`%s`" + ` placeholders: the
context first, then the question. A file without them is ignored and the
built-in prompt is used.
`
	return os.WriteFile(path, []byte(content), 0600)
}
