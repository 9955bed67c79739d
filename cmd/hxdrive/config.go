package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxdrive"
)

// Script describes one scripted interaction: open a page, fire events,
// print fragments.
//
//	url: http://localhost:8080/
//	steps:
//	  - fire: "#search"
//	    event: input
//	    value: cat
//	  - wait: 500ms
//	  - fire: "#save"
//	print:
//	  - "#results"
type Script struct {
	URL    string        `yaml:"url"`
	Settle time.Duration `yaml:"settle"` // idle wait after the last step, default 1s
	Steps  []Step        `yaml:"steps"`
	Print  []string      `yaml:"print"` // selectors to render; empty prints the page
}

// Step is one scripted action. Exactly one of Fire, Wait, Back, or
// Forward should be set.
type Step struct {
	Fire    string        `yaml:"fire"`  // selector to dispatch an event at
	Event   string        `yaml:"event"` // event type, default click
	Value   string        `yaml:"value"` // control value to set before dispatch
	Wait    time.Duration `yaml:"wait"`  // pause between steps
	Back    bool          `yaml:"back"`
	Forward bool          `yaml:"forward"`
}

func loadScript(path string) (Script, error) {
	var s Script
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.URL == "" {
		return s, fmt.Errorf("%s: url is required", path)
	}
	if s.Settle == 0 {
		s.Settle = time.Second
	}
	return s, nil
}

func runDrive(args []string) error {
	fs := flag.NewFlagSet("drive", flag.ExitOnError)
	scriptPath := fs.String("script", "drive.yaml", "path to the drive script")
	if err := fs.Parse(args); err != nil {
		return err
	}

	script, err := loadScript(*scriptPath)
	if err != nil {
		return err
	}

	eng := hxdrive.New(hxdrive.Config{})
	defer eng.Close()

	if err := eng.Open(script.URL); err != nil {
		return fmt.Errorf("open %s: %w", script.URL, err)
	}

	for i, step := range script.Steps {
		switch {
		case step.Fire != "":
			ev := hxdrive.DOMEvent{Type: step.Event, Value: step.Value}
			if err := eng.Fire(step.Fire, ev); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case step.Back:
			if err := eng.Back(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case step.Forward:
			if err := eng.Forward(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		if step.Wait > 0 {
			time.Sleep(step.Wait)
		}
	}

	if !eng.WaitIdle(script.Settle) {
		fmt.Fprintln(os.Stderr, "warning: requests still in flight after settle window")
	}

	if len(script.Print) == 0 {
		fmt.Println(eng.HTML())
		return nil
	}
	for _, sel := range script.Print {
		fmt.Println(eng.Element(sel))
	}
	return nil
}
