package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shape-portfolio/site/internal/auth"
	"github.com/shape-portfolio/site/internal/config"
	"github.com/shape-portfolio/site/internal/store"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Print a random secret for admin.secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := auth.GenerateSecret()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for admin.password_hash",
	Long:  "Hashes the given password, or the first line of stdin when no argument is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var initConfigForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file with a fresh secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initConfigForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}
		cfg := config.DefaultConfig()
		secret, err := auth.GenerateSecret()
		if err != nil {
			return err
		}
		cfg.Admin.Secret = secret
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Set admin.password or admin.password_hash before serving.\n", cfgFile)
		return nil
	},
}

var importDir string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load messages.json, projects.json and skills.json into the database",
	Long: `Reads the JSON files the site used to keep its data in and writes every
record into the SQLite database, keeping ids. Missing files are skipped.
Records with an id that already exists are replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := importLegacy(cmd.Context(), st, importDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages, %d projects, %d skills into %s\n",
			res.messages, res.projects, res.skills, st.Path())
		return nil
	},
}

func init() {
	initConfigCmd.Flags().BoolVar(&initConfigForce, "force", false, "overwrite an existing file")
	importCmd.Flags().StringVar(&importDir, "dir", ".", "folder holding the JSON files")
	rootCmd.AddCommand(genkeyCmd, hashPasswordCmd, initConfigCmd, importCmd)
}

// seedFile is the layout of the optional skills seed file.
type seedFile struct {
	Skills []struct {
		Name       string `yaml:"name"`
		Percentage int    `yaml:"percentage"`
	} `yaml:"skills"`
}

// loadSeed reads the skills an empty database starts with.
func loadSeed(path string) ([]store.Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	skills := make([]store.Skill, 0, len(f.Skills))
	for _, s := range f.Skills {
		skills = append(skills, store.Skill{Name: s.Name, Percentage: store.ClampPercent(s.Percentage)})
	}
	return skills, nil
}

// Legacy JSON records. Dates were written without a zone and gauges were
// sometimes strings, so both are decoded leniently.
type legacyMessage struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	Date        legacyTime `json:"date"`
	Read        bool       `json:"read"`
	Replied     bool       `json:"replied"`
	RepliedDate legacyTime `json:"repliedDate"`
}

type legacyProject struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Mission      string             `json:"mission"`
	MissionBrief string             `json:"missionBrief"`
	Architecture string             `json:"architecture"`
	Stack        []string           `json:"stack"`
	Images       []string           `json:"images"`
	LinkedInLink string             `json:"linkedInLink"`
	ReportFile   string             `json:"reportFile"`
	StatusValues store.StatusValues `json:"statusValues"`
	Status       store.Status       `json:"status"`
	CreatedAt    legacyTime         `json:"createdAt"`
	UpdatedAt    legacyTime         `json:"updatedAt"`
}

type legacyTime struct{ time.Time }

var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *legacyTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range legacyLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("unrecognised date %q", s)
}

type importResult struct {
	messages, projects, skills int
}

// importLegacy loads whichever of the three JSON files exist in dir.
func importLegacy(ctx context.Context, st *store.Store, dir string) (importResult, error) {
	var res importResult

	var messages []legacyMessage
	if ok, err := readLegacy(filepath.Join(dir, "messages.json"), &messages); err != nil {
		return res, err
	} else if ok {
		for _, m := range messages {
			msg := store.Message{
				ID: m.ID, Name: m.Name, Email: m.Email, Subject: m.Subject, Message: m.Message,
				Date: m.Date.Time, Read: m.Read, Replied: m.Replied,
			}
			if !m.RepliedDate.IsZero() {
				d := m.RepliedDate.Time
				msg.RepliedDate = &d
			}
			if err := st.ImportMessage(ctx, msg); err != nil {
				return res, err
			}
			res.messages++
		}
	}

	var projects []legacyProject
	if ok, err := readLegacy(filepath.Join(dir, "projects.json"), &projects); err != nil {
		return res, err
	} else if ok {
		for _, p := range projects {
			err := st.ImportProject(ctx, store.Project{
				ID: p.ID, Name: p.Name, Mission: p.Mission, MissionBrief: p.MissionBrief,
				Architecture: p.Architecture, Stack: p.Stack, Images: p.Images,
				LinkedInLink: p.LinkedInLink, ReportFile: p.ReportFile,
				StatusValues: p.StatusValues, Status: p.Status,
				CreatedAt: p.CreatedAt.Time, UpdatedAt: p.UpdatedAt.Time,
			})
			if err != nil {
				return res, err
			}
			res.projects++
		}
	}

	var skills []store.Skill
	if ok, err := readLegacy(filepath.Join(dir, "skills.json"), &skills); err != nil {
		return res, err
	} else if ok {
		for _, sk := range skills {
			if err := st.ImportSkill(ctx, sk); err != nil {
				return res, err
			}
			res.skills++
		}
	}
	return res, nil
}

// readLegacy decodes path into v, reporting false when the file is absent.
func readLegacy(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}
