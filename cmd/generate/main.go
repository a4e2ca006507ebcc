package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tilepacks.dev/internal/config"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/slug"
)

// tagNames is the tag catalog, in id order
var tagNames = []string{
	"PvM",
	"Raids",
	"Slayer",
	"Skilling",
	"Agility",
	"Fishing",
	"Mining",
	"Woodcutting",
	"Runecraft",
	"Hunter",
	"Thieving",
	"Minigames",
	"Quests",
	"Clue Scrolls",
	"Wilderness",
	"PvP",
	"Ironman",
	"Navigation",
	"AFK",
	"Beginner",
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: generate <output-dir>")
		os.Exit(1)
	}

	outputDir := os.Args[1]

	// Ensure output directory exists
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	// Tag catalog
	list := models.TagList{Tags: make([]models.Tag, 0, len(tagNames))}
	for i, name := range tagNames {
		list.Tags = append(list.Tags, models.Tag{
			ID:   int64(i + 1),
			Name: name,
			Slug: slug.Make(name),
		})
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR marshaling tags: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(filepath.Join(outputDir, "tags.json"), data); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR writing tags.json: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created tags.json (%d tags)\n", len(list.Tags))

	// Site settings, only when missing so local edits survive
	sitePath := filepath.Join(outputDir, "site.yaml")
	if _, err := os.Stat(sitePath); err == nil {
		fmt.Println("Kept existing site.yaml")
	} else {
		data, err := yaml.Marshal(config.DefaultSite)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR marshaling site settings: %v\n", err)
			os.Exit(1)
		}
		if err := writeFile(sitePath, data); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR writing site.yaml: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Created site.yaml")
	}

	fmt.Println("Done!")
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, append(data, '\n'), 0644)
}
