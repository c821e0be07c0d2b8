package kv

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := kvStore.Put(key, []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, stamp, err := kvStore.Get(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, value=%s, modified=%s\n",
					key, value, time.Unix(stamp, 0).Format(time.RFC3339))
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := kvStore.Delete(key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Prints a snapshot of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := kvStore.Status()
			if err != nil {
				return err
			}

			fmt.Printf("version=%d, entries=%d/%d\n",
				status.Version, status.EntryCount, status.Capacity)
			for _, entry := range status.Entries {
				fmt.Printf("  %-20s = %-20s (modified %s)\n",
					entry.Key, entry.Value, time.Unix(entry.Timestamp, 0).Format(time.RFC3339))
			}
			return nil
		},
	}
)
