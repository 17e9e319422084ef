// cmd/seeder/main.go
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/teamcast-backend/internal/config"
	"github.com/unclebandit/teamcast-backend/internal/db"
	"github.com/unclebandit/teamcast-backend/internal/keys"
	"github.com/unclebandit/teamcast-backend/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    partition              TEXT NOT NULL,
    row_key                TEXT NOT NULL,
    title                  TEXT NOT NULL DEFAULT '',
    image_link             TEXT NOT NULL DEFAULT '',
    image_base64_blob_name TEXT NOT NULL DEFAULT '',
    summary                TEXT NOT NULL DEFAULT '',
    author                 TEXT NOT NULL DEFAULT '',
    button_title           TEXT NOT NULL DEFAULT '',
    button_link            TEXT NOT NULL DEFAULT '',
    created_by             TEXT NOT NULL DEFAULT '',
    created_date           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    message_type           TEXT NOT NULL DEFAULT '',
    poll_options           TEXT[] NOT NULL DEFAULT '{}',
    poll_quiz_mode         BOOLEAN NOT NULL DEFAULT FALSE,
    poll_quiz_answers      TEXT[] NOT NULL DEFAULT '{}',
    poll_multiple_choice   BOOLEAN NOT NULL DEFAULT FALSE,
    teams                  TEXT[] NOT NULL DEFAULT '{}',
    rosters                TEXT[] NOT NULL DEFAULT '{}',
    groups                 TEXT[] NOT NULL DEFAULT '{}',
    all_users              BOOLEAN NOT NULL DEFAULT FALSE,
    inline_translation     BOOLEAN NOT NULL DEFAULT FALSE,
    full_width             BOOLEAN NOT NULL DEFAULT FALSE,
    notify_on_send         BOOLEAN NOT NULL DEFAULT FALSE,
    on_behalf_of           TEXT NOT NULL DEFAULT '',
    stage_view             BOOLEAN NOT NULL DEFAULT FALSE,
    ack_requested          BOOLEAN NOT NULL DEFAULT FALSE,
    is_draft               BOOLEAN NOT NULL DEFAULT FALSE,
    status                 TEXT NOT NULL DEFAULT '',
    sent_date              TIMESTAMPTZ,
    sent_by                TEXT NOT NULL DEFAULT '',
    sending_started_date   TIMESTAMPTZ,
    total_message_count    INTEGER NOT NULL DEFAULT 0,
    succeeded              INTEGER NOT NULL DEFAULT 0,
    failed                 INTEGER NOT NULL DEFAULT 0,
    throttled              INTEGER NOT NULL DEFAULT 0,
    error_message          TEXT NOT NULL DEFAULT '',
    warning_message        TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (partition, row_key)
)`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	handle, err := db.Connect(cfg.DatabaseConfig)
	if err != nil {
		log.Fatal(err)
	}
	defer handle.Close()

	if _, err := handle.Exec(schema); err != nil {
		log.Fatalf("failed to create notifications table: %v", err)
	}
	fmt.Println("Created: notifications table")

	samples := []struct {
		title   string
		summary string
		teams   []string
	}{
		{"Welcome to TeamCast", "Say hello to the new announcements hub.", []string{"team-general"}},
		{"Quarterly all-hands", "Agenda and dial-in for Friday.", []string{"team-general", "team-eng"}},
	}

	for _, s := range samples {
		_, err := handle.Exec(`
            INSERT INTO notifications (partition, row_key, title, summary, teams, created_by, created_date, is_draft)
            VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
            ON CONFLICT (partition, row_key) DO NOTHING`,
			model.PartitionDraft, keys.NewOldestFirst(), s.title, s.summary,
			pq.StringArray(s.teams), "seeder", time.Now().UTC(),
		)
		if err != nil {
			log.Fatalf("failed to seed draft %q: %v", s.title, err)
		}
		fmt.Printf("Seeded: draft %q\n", s.title)
	}

	fmt.Println("Database seeding completed successfully!")
}
