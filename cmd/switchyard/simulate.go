package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-snapshot",
	Short: "Copy an existing snapshot to a new timestamp",
	Long: `Create a new snapshot for a tenant by copying an existing one to the
current time. Useful for exercising the supervisor end to end: the copy
appears as a fresh deployment and is picked up on the next scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")
		source, _ := cmd.Flags().GetInt64("source-timestamp")
		if tenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tenantDir := filepath.Join(cfg.Dataset.BasePath, tenant)

		if source == 0 {
			source, err = latestTimestamp(tenantDir)
			if err != nil {
				return err
			}
			fmt.Printf("Using latest existing timestamp: %d\n", source)
		}

		newTimestamp := time.Now().Unix()
		sourcePath := filepath.Join(tenantDir, strconv.FormatInt(source, 10))
		targetPath := filepath.Join(tenantDir, strconv.FormatInt(newTimestamp, 10))

		if _, err := os.Stat(sourcePath); err != nil {
			return fmt.Errorf("source snapshot not found: %w", err)
		}
		if err := copyTree(sourcePath, targetPath); err != nil {
			return err
		}

		fmt.Printf("Created snapshot %s/%d\n", tenant, newTimestamp)
		fmt.Printf("The supervisor should detect it within %d seconds\n", cfg.Supervisor.ScanIntervalSeconds)
		return nil
	},
}

func init() {
	simulateCmd.Flags().String("tenant", "", "Tenant to create a snapshot for (required)")
	simulateCmd.Flags().Int64("source-timestamp", 0, "Snapshot to copy from (default: latest)")
}

// latestTimestamp finds the largest integer-named directory under dir
func latestTimestamp(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read tenant directory: %w", err)
	}

	var latest int64
	found := false
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ts, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		if !found || ts > latest {
			latest = ts
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("no snapshots found under %s", dir)
	}
	return latest, nil
}

// copyTree recursively copies src to dst, preserving layout
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
