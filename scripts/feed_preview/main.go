package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/campus-feed-api/internal/feed"
)

type previewCase struct {
	Name       string           `yaml:"name"`
	State      feed.ScreenState `yaml:"state"`
	Expect     []string         `yaml:"expect,omitempty"`
	Announce   []string         `yaml:"expect_announcements,omitempty"`
	Critical   bool             `yaml:"critical"`
	ShowBanner bool             `yaml:"show_banner"`
}

type fixture struct {
	Now      string        `yaml:"now"`
	Timezone string        `yaml:"timezone"`
	Snapshot feed.Snapshot `yaml:"snapshot"`
	Cases    []previewCase `yaml:"cases"`
}

type result struct {
	Case    previewCase
	View    feed.View
	Missing []string
	Extra   []string
	Error   error
}

func main() {
	var (
		fixturePath string
		nowFlag     string
		limit       int
		dump        bool
	)

	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "feed_preview", "fixture.yaml"), "Path to YAML fixture")
	flag.StringVar(&nowFlag, "now", "", "Override the fixture clock (2006-01-02T15:04)")
	flag.IntVar(&limit, "suggestions", feed.DefaultSuggestionLimit, "Suggestion limit")
	flag.BoolVar(&dump, "dump", false, "Print each derived view as YAML")
	flag.Parse()

	fx, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}
	if nowFlag != "" {
		fx.Now = nowFlag
	}
	now, err := fixtureClock(fx)
	if err != nil {
		log.Fatalf("invalid clock: %v", err)
	}

	opts := feed.DefaultOptions()
	opts.SuggestionLimit = limit

	var (
		results  []result
		breaking int
		soft     int
	)
	for _, c := range fx.Cases {
		res := runCase(c, fx.Snapshot, now, opts)
		if res.Error != nil || len(res.Missing) > 0 || len(res.Extra) > 0 {
			if c.Critical {
				breaking++
			} else {
				soft++
			}
		}
		results = append(results, res)
	}

	printReport(results, dump)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, soft)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	if len(fx.Cases) == 0 {
		return nil, fmt.Errorf("no cases defined in %s", path)
	}
	return &fx, nil
}

func fixtureClock(fx *fixture) (time.Time, error) {
	loc := time.Local
	if fx.Timezone != "" {
		l, err := time.LoadLocation(fx.Timezone)
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	if strings.TrimSpace(fx.Now) == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02T15:04", fx.Now, loc)
}

func runCase(c previewCase, snap feed.Snapshot, now time.Time, opts feed.Options) result {
	res := result{Case: c}
	state, err := c.State.Normalize()
	if err != nil {
		res.Error = err
		return res
	}
	res.View = feed.Derive(state, snap, now, opts)

	if c.Expect != nil {
		got := make([]string, 0, len(res.View.Events))
		for _, e := range res.View.Events {
			got = append(got, e.ID)
		}
		res.Missing, res.Extra = diffIDs(c.Expect, got)
	}
	if c.Announce != nil {
		got := make([]string, 0, len(res.View.Announcements))
		for _, a := range res.View.Announcements {
			got = append(got, a.ID)
		}
		missing, extra := diffIDs(c.Announce, got)
		res.Missing = append(res.Missing, missing...)
		res.Extra = append(res.Extra, extra...)
	}
	return res
}

// diffIDs compares ordered id lists; an order mismatch reports every
// misplaced id as both missing and extra.
func diffIDs(want, got []string) (missing, extra []string) {
	n := len(want)
	if len(got) > n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(got):
			missing = append(missing, want[i])
		case i >= len(want):
			extra = append(extra, got[i])
		case want[i] != got[i]:
			missing = append(missing, want[i])
			extra = append(extra, got[i])
		}
	}
	return missing, extra
}

func printReport(results []result, dump bool) {
	fmt.Println("Feed Preview Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Missing) > 0 || len(res.Extra) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Case.Name, res.Case.State.Date.Label())
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Events: %d | Announcements: %d | Banner: %d | Suggestions: %d\n",
			len(res.View.Events), len(res.View.Announcements), len(res.View.Banner), len(res.View.Suggestions))
		if len(res.Missing) > 0 {
			fmt.Printf("  Missing: %s\n", strings.Join(res.Missing, ", "))
		}
		if len(res.Extra) > 0 {
			fmt.Printf("  Unexpected: %s\n", strings.Join(res.Extra, ", "))
		}
		if res.Case.ShowBanner {
			for _, item := range res.View.Banner {
				fmt.Printf("  Banner: %s %s\n", item.Kind, item.ID())
			}
		}
		if dump {
			if err := printView(res.View); err != nil {
				fmt.Printf("  Dump failed: %v\n", err)
			}
		}
	}
}

func printView(view feed.View) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return nil
}
