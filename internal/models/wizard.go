package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
)

// RunWizard asks for the essential settings interactively, starting from
// current, and returns the updated copy. Nothing is saved.
func RunWizard(current *Settings) (*Settings, error) {
	s := current.Clone()

	fmt.Println("Let's set up the nursery advisor.")
	fmt.Println()

	namePrompt := promptui.Prompt{
		Label:   "Child's name (optional)",
		Default: s.ChildName,
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("name prompt: %w", err)
	}
	s.ChildName = name

	birthPrompt := promptui.Prompt{
		Label:    "Birth date (YYYY-MM-DD)",
		Default:  s.BirthDate,
		Validate: validateBirthDate,
	}
	birth, err := birthPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("birth date prompt: %w", err)
	}
	s.BirthDate = birth

	sourcePrompt := promptui.Select{
		Label: "Where is the activity log kept?",
		Items: []string{
			"local: SQLite database on this machine",
			"remote: care-log server over HTTP",
		},
	}
	sourceIdx, _, err := sourcePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("source selection: %w", err)
	}

	if sourceIdx == 1 {
		s.Source = SourceRemote

		urlPrompt := promptui.Prompt{
			Label:   "Server URL",
			Default: s.RemoteURL,
			Validate: func(v string) error {
				if v == "" {
					return errors.New("url is required")
				}
				return nil
			},
		}
		if s.RemoteURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("url prompt: %w", err)
		}

		tokenPrompt := promptui.Prompt{
			Label: "API token (leave empty to use an API secret)",
			Mask:  '*',
		}
		token, err := tokenPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("token prompt: %w", err)
		}
		if token != "" {
			s.APIToken = token
			s.UseToken = true
		} else {
			secretPrompt := promptui.Prompt{
				Label: "API secret",
				Mask:  '*',
			}
			if s.APISecret, err = secretPrompt.Run(); err != nil {
				return nil, fmt.Errorf("secret prompt: %w", err)
			}
			s.UseToken = false
		}
	} else {
		s.Source = SourceLocal
	}

	alertPrompt := promptui.Select{
		Label: "Desktop alerts",
		Items: []string{"feeds and wind-down", "feeds only", "off"},
	}
	alertIdx, _, err := alertPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("alert selection: %w", err)
	}
	s.EnableFeedAlert = alertIdx < 2
	s.EnableWindDownAlert = alertIdx == 0

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func validateBirthDate(v string) error {
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return errors.New("use the YYYY-MM-DD format")
	}
	if t.After(time.Now()) {
		return errors.New("birth date is in the future")
	}
	return nil
}
