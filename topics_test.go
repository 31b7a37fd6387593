package tutor_test

import (
	"strings"
	"testing"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestCatalog(t *testing.T) {
	cats := tutor.Catalog()
	if len(cats) != 3 {
		t.Fatalf("categories = %d, want 3", len(cats))
	}

	seen := map[string]bool{}
	for _, c := range cats {
		if len(c.Topics) == 0 {
			t.Errorf("category %q is empty", c.Name)
		}
		for _, topic := range c.Topics {
			if seen[topic.ID] {
				t.Errorf("duplicate topic ID %q", topic.ID)
			}
			seen[topic.ID] = true
			if topic.IsCustom() {
				t.Errorf("built-in topic %q reports custom", topic.ID)
			}
			if topic.Prompt() != topic.ID {
				t.Errorf("Prompt() = %q, want the ID for built-in topics", topic.Prompt())
			}
		}
	}

	// Callers get a copy.
	cats[0].Topics[0].Title = "changed"
	if tutor.Catalog()[0].Topics[0].Title == "changed" {
		t.Error("Catalog() exposes the built-in slice")
	}
}

func TestFindTopic(t *testing.T) {
	topic, ok := tutor.FindTopic("i-transport-metro")
	if !ok || topic.Level != tutor.LevelIntermediate {
		t.Errorf("FindTopic(i-transport-metro) = %+v, %v", topic, ok)
	}
	if _, ok := tutor.FindTopic("missing"); ok {
		t.Error("FindTopic(missing) = true")
	}
}

func TestTopicsByLevel(t *testing.T) {
	for _, level := range []tutor.Level{tutor.LevelBeginner, tutor.LevelIntermediate, tutor.LevelAdvanced} {
		topics := tutor.TopicsByLevel(level)
		if len(topics) == 0 {
			t.Errorf("no topics for %s", level)
		}
		for _, topic := range topics {
			if topic.Level != level {
				t.Errorf("%s listed under %s", topic.ID, level)
			}
		}
	}
}

func TestNewCustomTopic(t *testing.T) {
	topic, err := tutor.NewCustomTopic("  空港でスーツケースをなくした ")
	if err != nil {
		t.Fatalf("NewCustomTopic() error = %v", err)
	}
	if !strings.HasPrefix(topic.ID, "custom-") || !topic.IsCustom() {
		t.Errorf("ID = %q, want custom- prefix", topic.ID)
	}
	if topic.ID != strings.ToLower(topic.ID) {
		t.Errorf("ID = %q, want lowercase", topic.ID)
	}
	if topic.Prompt() != "空港でスーツケースをなくした" {
		t.Errorf("Prompt() = %q, want the trimmed title", topic.Prompt())
	}

	other, _ := tutor.NewCustomTopic("空港でスーツケースをなくした")
	if other.ID == topic.ID {
		t.Error("custom topics should get distinct IDs")
	}

	if _, err := tutor.NewCustomTopic("   "); err == nil {
		t.Error("blank title should fail")
	}
}
