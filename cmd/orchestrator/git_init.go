// Copyright Contributors to the KubeOpenCode project

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variable names for git-init. REPOSITORY_URL and SOURCE_BRANCH
// match the env the controller injects into the agent container
// (internal/build.buildEnv); the controller does not set WORKSPACE_DIR, so
// it falls back to defaultWorkspaceDir unless set explicitly.
const (
	envRepositoryURL = "REPOSITORY_URL"
	envSourceBranch  = "SOURCE_BRANCH"
	envGitDepth      = "GIT_DEPTH"
	envWorkspaceDir  = "WORKSPACE_DIR"
	envSSHKeyPath    = "SSH_KEY_PATH"
)

// Default values for git-init
const (
	defaultBranch       = "HEAD"
	defaultDepth        = 1
	defaultWorkspaceDir = "/workspace"
	defaultSSHKeyPath   = "/workspace/.ssh/id_rsa"
)

func init() {
	rootCmd.AddCommand(gitInitCmd)
}

var gitInitCmd = &cobra.Command{
	Use:   "git-init",
	Short: "Clone the run's repository into the workspace",
	Long: `git-init clones the run's repository into the workspace volume.

SSH is the only supported credential flow: the private key is expected at the
mount the controller wires into the job (/workspace/.ssh/id_rsa). HTTPS URLs
work only for public repositories.

Environment variables:
  REPOSITORY_URL     Repository URL (required)
  SOURCE_BRANCH      Branch to check out, default: HEAD
  GIT_DEPTH          Clone depth, default: 1
  WORKSPACE_DIR      Workspace root, default: /workspace
  SSH_KEY_PATH       SSH private key path, default: /workspace/.ssh/id_rsa`,
	RunE: runGitInit,
}

func runGitInit(cmd *cobra.Command, args []string) error {
	repo := os.Getenv(envRepositoryURL)
	if repo == "" {
		return fmt.Errorf("%s environment variable is required", envRepositoryURL)
	}
	if err := validateRepoURL(repo); err != nil {
		return err
	}

	branch := getEnvOrDefault(envSourceBranch, defaultBranch)
	depth := getEnvIntOrDefault(envGitDepth, defaultDepth)
	workspace := getEnvOrDefault(envWorkspaceDir, defaultWorkspaceDir)

	targetDir := filepath.Join(workspace, repoDirName(repo))

	fmt.Println("git-init: Cloning repository...")
	fmt.Printf("  Repository: %s\n", repo)
	fmt.Printf("  Branch: %s\n", branch)
	fmt.Printf("  Target: %s\n", targetDir)

	if err := setupSSH(); err != nil {
		return fmt.Errorf("failed to set up SSH authentication: %w", err)
	}

	if err := os.MkdirAll(workspace, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	// A pre-existing clone means this service's workspace volume is being
	// reused across attempts; fetch and reset instead of recloning.
	if _, err := os.Stat(filepath.Join(targetDir, ".git")); err == nil {
		return updateClone(targetDir, branch)
	}

	cloneArgs := []string{"clone", "--depth", strconv.Itoa(depth), "--single-branch"}
	if branch != "HEAD" {
		cloneArgs = append(cloneArgs, "--branch", branch)
	}
	cloneArgs = append(cloneArgs, repo, targetDir)

	cloneCmd := exec.Command("git", cloneArgs...) //nolint:gosec // args are constructed from controlled inputs
	cloneCmd.Stdout = os.Stdout
	cloneCmd.Stderr = os.Stderr
	if err := cloneCmd.Run(); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}

	if _, err := os.Stat(filepath.Join(targetDir, ".git")); os.IsNotExist(err) {
		return fmt.Errorf("clone verification failed: .git directory not found")
	}

	// Mark the clone safe for the non-root agent user.
	sharedGitConfig := filepath.Join(workspace, ".gitconfig")
	gitConfigContent := fmt.Sprintf("[safe]\n\tdirectory = %s\n\tdirectory = *\n", targetDir)
	if err := os.WriteFile(sharedGitConfig, []byte(gitConfigContent), 0o644); err != nil {
		fmt.Printf("git-init: Warning: could not write shared .gitconfig: %v\n", err)
	}

	commitCmd := exec.Command("git", "-C", targetDir, "rev-parse", "HEAD") //nolint:gosec // targetDir is constructed from controlled inputs
	commitOutput, err := commitCmd.Output()
	if err != nil {
		fmt.Println("git-init: Clone successful! (could not get commit hash)")
	} else {
		fmt.Printf("git-init: Clone successful!\n  Commit: %s\n", strings.TrimSpace(string(commitOutput)))
	}

	return nil
}

func updateClone(targetDir, branch string) error {
	fmt.Println("git-init: Existing clone found, updating...")

	fetchCmd := exec.Command("git", "-C", targetDir, "fetch", "origin") //nolint:gosec // targetDir is constructed from controlled inputs
	fetchCmd.Stdout = os.Stdout
	fetchCmd.Stderr = os.Stderr
	if err := fetchCmd.Run(); err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}

	ref := "origin/HEAD"
	if branch != "HEAD" {
		ref = "origin/" + branch
	}
	resetCmd := exec.Command("git", "-C", targetDir, "reset", "--hard", ref) //nolint:gosec // ref is constructed from controlled inputs
	resetCmd.Stdout = os.Stdout
	resetCmd.Stderr = os.Stderr
	if err := resetCmd.Run(); err != nil {
		return fmt.Errorf("git reset failed: %w", err)
	}

	fmt.Println("git-init: Update successful!")
	return nil
}

// setupSSH points git at the controller-mounted private key. The key's 0600
// mode is set by the volume mount itself.
func setupSSH() error {
	keyPath := getEnvOrDefault(envSSHKeyPath, defaultSSHKeyPath)
	if _, err := os.Stat(keyPath); err != nil {
		fmt.Printf("git-init: No SSH key at %s, proceeding unauthenticated\n", keyPath)
		return nil
	}

	sshCmd := fmt.Sprintf("ssh -i %s -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new", keyPath)
	if err := os.Setenv("GIT_SSH_COMMAND", sshCmd); err != nil {
		return fmt.Errorf("failed to set GIT_SSH_COMMAND: %w", err)
	}
	return nil
}

// repoDirName derives the checkout directory from the repository URL, e.g.
// git@github.com:org/simple-api.git -> simple-api.
func repoDirName(repoURL string) string {
	name := repoURL
	if idx := strings.LastIndexAny(name, "/:"); idx != -1 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		return "repo"
	}
	return name
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func validateRepoURL(repo string) error {
	if strings.HasPrefix(repo, "https://") || strings.HasPrefix(repo, "git@") {
		return nil
	}
	if strings.HasPrefix(repo, "http://") {
		fmt.Println("git-init: WARNING: Using insecure HTTP protocol")
		return nil
	}
	return fmt.Errorf("unsupported repository URL protocol: only https://, http://, and git@ (SSH) are allowed")
}
