package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"realtime-hub/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Lists stored messages: go run ./tools -db ./data -prefix msg:1:2:
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	// "msg:" keeps the idx: entries out of the way
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	width := flag.Int("width", 48, "Maximum content width")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "ID", "At", "From", "To", "Read", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			if strings.HasPrefix(string(item.Key()), "idx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var message domain.StoredMessage
				if err := json.Unmarshal(v, &message); err != nil {
					// Keep listing the rest
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append([]string{
					shortKey(string(item.Key())),
					message.ID.String()[:8],
					message.CreatedAt.Format("2006-01-02 15:04:05"),
					message.SenderID.String(),
					message.ReceiverID.String(),
					fmt.Sprintf("%t", message.IsRead),
					truncate(message.Content, *width),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("\n%d message(s) under %q\n", count, *prefix)
}

// shortKey drops the uuid suffix, which is already shown in its own column.
func shortKey(key string) string {
	if i := strings.LastIndex(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}

func truncate(s string, width int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if width <= 3 || len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-3]) + "..."
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server may leave a log that needs truncating first
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
