// Copyright Contributors to the KubeOpenCode project

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variable names for context-init
const (
	envConfigDir       = "CONFIG_DIR"
	envOverwriteMemory = "OVERWRITE_MEMORY"
)

// Default values for context-init
const (
	defaultConfigDir = "/config"

	hookKeyPrefix = "hooks-"
	memoryFile    = "CLAUDE.md"
)

func init() {
	rootCmd.AddCommand(contextInitCmd)
}

var contextInitCmd = &cobra.Command{
	Use:   "context-init",
	Short: "Copy the config bundle into the workspace",
	Long: `context-init copies the rendered config bundle into the workspace.

The bundle is mounted read-only at /config; the agent needs writable copies
of some of its files. Bundle keys prefixed "hooks-" land in
<workspace>/.claude/hooks/ with the prefix stripped and execute permission
set. CLAUDE.md is only replaced when OVERWRITE_MEMORY=true or no memory file
exists yet, so a continued session keeps its accumulated memory.

Environment variables:
  CONFIG_DIR        Path where the bundle is mounted, default: /config
  WORKSPACE_DIR     Target workspace directory, default: /workspace
  OVERWRITE_MEMORY  Replace an existing CLAUDE.md, default: false`,
	RunE: runContextInit,
}

func runContextInit(cmd *cobra.Command, args []string) error {
	configDir := getEnvOrDefault(envConfigDir, defaultConfigDir)
	workspaceDir := getEnvOrDefault(envWorkspaceDir, defaultWorkspaceDir)
	overwriteMemory := os.Getenv(envOverwriteMemory) == "true"

	fmt.Println("context-init: Copying config bundle to workspace...")
	fmt.Printf("  Config: %s\n", configDir)
	fmt.Printf("  Workspace: %s\n", workspaceDir)

	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	entries, err := os.ReadDir(configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	hooksDir := filepath.Join(workspaceDir, ".claude", "hooks")

	for _, entry := range entries {
		name := entry.Name()

		// Kubernetes ConfigMap mounts contain ..data/..TIMESTAMP entries
		// used for atomic updates; skip them.
		if strings.HasPrefix(name, "..") {
			continue
		}

		info, err := os.Stat(filepath.Join(configDir, name)) // Stat follows the mount's symlinks
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", name, err)
		}
		if info.IsDir() {
			continue
		}

		srcPath := filepath.Join(configDir, name)

		switch {
		case strings.HasPrefix(name, hookKeyPrefix):
			dstPath := filepath.Join(hooksDir, strings.TrimPrefix(name, hookKeyPrefix))
			if err := copyFile(srcPath, dstPath, 0o755); err != nil {
				return fmt.Errorf("failed to copy hook %s: %w", name, err)
			}
			fmt.Printf("context-init: Installed hook %s\n", dstPath)

		case name == memoryFile:
			dstPath := filepath.Join(workspaceDir, memoryFile)
			if _, err := os.Stat(dstPath); err == nil && !overwriteMemory {
				fmt.Println("context-init: Keeping existing CLAUDE.md")
				continue
			}
			if err := copyFile(srcPath, dstPath, 0o644); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
			fmt.Printf("context-init: Wrote %s\n", dstPath)

		default:
			dstPath := filepath.Join(workspaceDir, name)
			if err := copyFile(srcPath, dstPath, 0o644); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
			fmt.Printf("context-init: Copied %s -> %s\n", name, dstPath)
		}
	}

	fmt.Println("context-init: Done!")
	return nil
}

// copyFile copies src to dst with the given mode, creating parent directories.
func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}

	if err := os.Chmod(dst, mode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	return nil
}
