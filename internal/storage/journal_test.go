package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lvrguard/internal/model"
)

func TestJournalAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	journal := NewJournal(path)

	first, err := model.NewEnvelope(model.EventAuctionOpened, model.AuctionOpened{
		PoolID:    "0x01",
		AuctionID: "0x02",
		StartTime: 100,
		Duration:  60,
	})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	second, err := model.NewEnvelope(model.EventRewardsClaimed, model.RewardsClaimed{
		PoolID:   "0x01",
		Provider: "0x03",
		Amount:   "7",
	})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	if err := journal.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(); err != nil {
		t.Fatalf("empty append: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var types []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var env model.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			t.Fatalf("bad journal line: %v", err)
		}
		types = append(types, env.Type)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(types) != 2 || types[0] != model.EventAuctionOpened || types[1] != model.EventRewardsClaimed {
		t.Fatalf("journal types = %v", types)
	}

	var opened model.AuctionOpened
	if err := json.Unmarshal(first.Data, &opened); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if opened.AuctionID != "0x02" || opened.Duration != 60 {
		t.Fatalf("payload = %+v", opened)
	}
}
