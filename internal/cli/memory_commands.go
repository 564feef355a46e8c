package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hession/krishimate/internal/memory"
)

// MemoryCommands handles the /memory command family.
type MemoryCommands struct {
	engine *memory.Engine
}

// NewMemoryCommands creates the memory command handler
func NewMemoryCommands(engine *memory.Engine) *MemoryCommands {
	return &MemoryCommands{engine: engine}
}

// Handle dispatches one /memory subcommand and returns the output.
func (c *MemoryCommands) Handle(userID string, args []string) string {
	if len(args) == 0 {
		return c.stats(userID)
	}

	subCmd := strings.ToLower(args[0])
	switch subCmd {
	case "stats":
		return c.stats(userID)
	case "list":
		return c.list(userID)
	case "search":
		if len(args) < 2 {
			return "❌ Usage: /memory search <keyword>"
		}
		return c.search(userID, strings.Join(args[1:], " "))
	case "category":
		if len(args) < 2 {
			return "❌ Usage: /memory category <name>"
		}
		return c.category(userID, args[1])
	case "delete", "forget":
		if len(args) < 2 {
			return "❌ Usage: /memory delete <fact_id>"
		}
		return c.delete(userID, args[1])
	case "clear":
		return c.clear(userID)
	default:
		return c.help()
	}
}

// stats shows the memory summary for a farmer
func (c *MemoryCommands) stats(userID string) string {
	stats, err := c.engine.Stats(userID)
	if err != nil {
		return fmt.Sprintf("❌ Failed to load memory stats: %v", err)
	}

	if stats.Total == 0 {
		return "📝 I don't remember anything about your farm yet. Just keep chatting!"
	}

	var builder strings.Builder
	builder.WriteString("📊 Farm Memory\n\n")
	builder.WriteString(fmt.Sprintf("Total facts: %d\n\n", stats.Total))

	categories := make([]string, 0, len(stats.Categories))
	for cat := range stats.Categories {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	builder.WriteString("By category:\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("   %-12s %d\n", cat, stats.Categories[cat]))
	}
	builder.WriteString("\nUse /memory list to see everything")

	return builder.String()
}

// list shows every remembered fact
func (c *MemoryCommands) list(userID string) string {
	facts, err := c.engine.All(userID)
	if err != nil {
		return fmt.Sprintf("❌ Failed to load memory: %v", err)
	}

	if len(facts) == 0 {
		return "📝 I don't remember anything about your farm yet"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📚 Remembered facts (%d)\n\n", len(facts)))
	for i, f := range facts {
		builder.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, f.Category, f.Content))
		builder.WriteString(fmt.Sprintf("   id: %s  importance: %d  recalled: %d times\n",
			shortID(f.ID), f.Importance, f.AccessCount))
	}
	builder.WriteString("\nUse /memory delete <id> to remove a fact")

	return builder.String()
}

// search finds relevant facts for a keyword or phrase
func (c *MemoryCommands) search(userID, query string) string {
	results, err := c.engine.Search(context.Background(), userID, query, 10)
	if err != nil {
		return fmt.Sprintf("❌ Search failed: %v", err)
	}

	if len(results) == 0 {
		return fmt.Sprintf("🔍 Nothing remembered about %q", query)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🔍 Search results for %q\n\n", query))
	for i, r := range results {
		builder.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, r.Category, r.Content))
	}

	return builder.String()
}

// category lists facts in one category, most important first
func (c *MemoryCommands) category(userID, cat string) string {
	if !memory.IsValidCategory(cat) {
		return fmt.Sprintf("❌ Unknown category %q. Valid: %s", cat, strings.Join(memory.Categories, ", "))
	}

	facts, err := c.engine.ByCategory(userID, cat)
	if err != nil {
		return fmt.Sprintf("❌ Failed to load category: %v", err)
	}

	if len(facts) == 0 {
		return fmt.Sprintf("📝 Nothing remembered in category %q", cat)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📚 %s facts (%d)\n\n", cat, len(facts)))
	for i, f := range facts {
		builder.WriteString(fmt.Sprintf("%d. %s (importance %d)\n", i+1, f.Content, f.Importance))
	}

	return builder.String()
}

// delete removes one fact by its ID prefix or full ID
func (c *MemoryCommands) delete(userID, factID string) string {
	id, err := c.resolveID(userID, factID)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	if err := c.engine.Delete(userID, id); err != nil {
		return fmt.Sprintf("❌ Failed to delete fact: %v", err)
	}
	return "✅ Fact forgotten"
}

// clear wipes everything remembered about the farmer
func (c *MemoryCommands) clear(userID string) string {
	if err := c.engine.Clear(userID); err != nil {
		return fmt.Sprintf("❌ Failed to clear memory: %v", err)
	}
	return "✅ Everything about your farm has been forgotten"
}

// resolveID expands a short ID prefix to a full fact ID.
func (c *MemoryCommands) resolveID(userID, prefix string) (string, error) {
	facts, err := c.engine.All(userID)
	if err != nil {
		return "", fmt.Errorf("failed to load memory: %w", err)
	}

	var matches []string
	for _, f := range facts {
		if f.ID == prefix {
			return f.ID, nil
		}
		if strings.HasPrefix(f.ID, prefix) {
			matches = append(matches, f.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no fact with id %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id %q is ambiguous, use more characters", prefix)
	}
}

func (c *MemoryCommands) help() string {
	return `📖 Memory commands

/memory                   - Show memory summary
/memory stats             - Show memory summary
/memory list              - List every remembered fact
/memory search <keyword>  - Search your farm memory
/memory category <name>   - List facts in one category
/memory delete <id>       - Delete one fact
/memory clear             - Forget everything`
}

// shortID returns the first 8 characters of a fact ID for display
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
