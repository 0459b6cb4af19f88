package lock

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/omnikv/omnistore/cmd/util"
	"github.com/omnikv/omnistore/lib/store"
	"github.com/spf13/cobra"
)

// defaultAcquireTimeout bounds lock acquisition when neither the flag
// nor the environment sets one.
const defaultAcquireTimeout = 30 * time.Second

var (
	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:   "lock",
		Short: "Perform lock operations",
	}

	// runCmd represents the run command
	runCmd = &cobra.Command{
		Use:   "run [key] -- [command...]",
		Short: "Run a command while holding the lock for a key",
		Long: util.WrapString("Acquires the per-key lock on the configured store, runs the given " +
			"command and releases the lock when the command exits. The lock coordinates with all " +
			"other processes pointed at the same backend."),
		Args: cobra.MinimumNArgs(2),
		RunE: runLocked,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(runCmd)

	// Add the common store flags to the lock command
	util.SetupStoreFlags(LockCommands)

	// Add flags specific to run
	runCmd.Flags().Duration("acquire-timeout", defaultAcquireTimeout, "How long to wait for the lock")
}

// runLocked acquires the lock, runs the child command and releases the
// lock on every exit path
func runLocked(cmd *cobra.Command, args []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	key := args[0]
	childArgs := args[1:]

	s, err := store.New(util.GetStoreConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	guard, err := s.Lock(cmd.Context(), key, util.GetTimeout("acquire-timeout", defaultAcquireTimeout))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}
	defer guard.Release()

	child := exec.CommandContext(cmd.Context(), childArgs[0], childArgs[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	return child.Run()
}
