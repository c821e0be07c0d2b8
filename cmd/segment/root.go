package segment

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/shmKV/lib/shm"
	"github.com/ValentinKolb/shmKV/lib/store/shmstore"
	"github.com/spf13/cobra"
)

var (
	// SegmentCommands represents the segment command group
	SegmentCommands = &cobra.Command{
		Use:   "segment",
		Short: "Manage shared-memory segments",
	}

	// createCmd creates a new segment
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new shared-memory segment",
		Long:  "Create a new shared-memory segment with an empty table. Fails if a segment of that name already exists.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCreate,
	}

	// unlinkCmd removes a segment from the OS namespace
	unlinkCmd = &cobra.Command{
		Use:   "unlink [name]",
		Short: "Remove a segment from the system",
		Long:  "Remove a shared-memory segment from the OS namespace. Processes that are still attached keep working on the (now anonymous) memory; the name becomes available for a new segment immediately.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runUnlink,
	}

	// infoCmd prints the layout and contents of a segment
	infoCmd = &cobra.Command{
		Use:   "info [name]",
		Short: "Print layout and contents of a segment",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInfo,
	}
)

func init() {
	// Add subcommands to segment command
	SegmentCommands.AddCommand(createCmd)
	SegmentCommands.AddCommand(unlinkCmd)
	SegmentCommands.AddCommand(infoCmd)
}

// segmentName returns the segment name from the args or the default
func segmentName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return shm.DefaultSegmentName
}

// runCreate handles the create segment command
func runCreate(_ *cobra.Command, args []string) error {
	name := segmentName(args)

	s, err := shmstore.CreateStore(name)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	defer s.Close()

	fmt.Printf("created segment %s (%d bytes, %d slots)\n", name, shm.LayoutSize, shm.Capacity)
	return nil
}

// runUnlink handles the unlink segment command
func runUnlink(_ *cobra.Command, args []string) error {
	name := segmentName(args)

	if err := shmstore.Unlink(name); err != nil {
		return fmt.Errorf("failed to unlink segment: %w", err)
	}

	fmt.Printf("unlinked segment %s\n", name)
	return nil
}

// runInfo handles the info segment command
func runInfo(_ *cobra.Command, args []string) error {
	name := segmentName(args)

	s, err := shmstore.NewStore(name)
	if err != nil {
		return fmt.Errorf("failed to attach to segment: %w", err)
	}
	defer s.Close()

	status, err := s.Status()
	if err != nil {
		return err
	}

	fmt.Printf("segment    : %s\n", name)
	fmt.Printf("layout     : %d bytes (%d slots of %d bytes, key %d, value %d)\n",
		shm.LayoutSize, shm.Capacity, shm.SlotSize, shm.KeySize, shm.ValueSize)
	fmt.Printf("version    : %d\n", status.Version)
	fmt.Printf("entries    : %d/%d\n", status.EntryCount, status.Capacity)
	for _, entry := range status.Entries {
		fmt.Printf("  %-20s = %-20s (modified %s)\n",
			entry.Key, entry.Value, time.Unix(entry.Timestamp, 0).Format(time.RFC3339))
	}
	return nil
}
