package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	flagDescription string
	flagTags        string
	flagPublic      bool
	flagWait        bool

	fileFilter client.FileFilter

	flagOutput string
	flagForce  bool
)

const (
	statusPollInterval = time.Second
	statusPollTimeout  = 5 * time.Minute
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload CSV, Excel, JSON or image files",
	Long: `Upload one or more local files. Spreadsheets are parsed on the server;
use --wait to block until processing finishes.

  excelctl upload sales.xlsx
  excelctl upload q1.csv q2.csv --tags sales,2024 --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		opts := client.UploadOptions{Description: flagDescription, Public: flagPublic}
		for _, tag := range strings.Split(flagTags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}

		var uploaded []client.File
		var failed int
		for _, path := range args {
			f, err := apiClient.UploadFile(cmd.Context(), path, opts)
			if err == nil && flagWait && f.Status == "processing" {
				f, err = waitForProcessing(cmd.Context(), f.ID)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "  Failed: %s: %v\n", filepath.Base(path), err)
				failed++
				continue
			}
			uploaded = append(uploaded, f)
			if !flagJSON {
				fmt.Fprintf(output.Out, "Uploaded %s (%s, %s)\n", f.OriginalName, f.ID, f.Status)
			}
		}

		if flagJSON {
			output.JSON(uploaded)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

// waitForProcessing polls the status endpoint until the file leaves the
// processing state.
func waitForProcessing(ctx context.Context, fileID string) (client.File, error) {
	ctx, cancel := context.WithTimeout(ctx, statusPollTimeout)
	defer cancel()

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	for {
		status, err := apiClient.FileStatus(ctx, fileID)
		if err != nil {
			return client.File{}, fmt.Errorf("checking status: %w", err)
		}
		switch status.Status {
		case "processed":
			return apiClient.GetFile(ctx, fileID)
		case "failed":
			if status.ErrorMessage != nil {
				return client.File{}, fmt.Errorf("processing failed: %s", *status.ErrorMessage)
			}
			return client.File{}, fmt.Errorf("processing failed")
		}

		select {
		case <-ctx.Done():
			return client.File{}, fmt.Errorf("timed out waiting for processing")
		case <-ticker.C:
		}
	}
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List uploaded files",
	Long: `List your files, newest first.

  excelctl ls
  excelctl ls --status failed
  excelctl ls --tag sales --sort size --order desc`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		files, page, err := apiClient.ListFiles(cmd.Context(), fileFilter)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}

		if flagJSON {
			output.JSON(files)
			return nil
		}
		output.FileTable(files)
		if page != nil && page.TotalPages > 1 {
			fmt.Fprintf(output.Out, "\nPage %d of %d (%d files)\n", page.Page, page.TotalPages, page.Total)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file-id>",
	Short: "Show file details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		f, err := apiClient.GetFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching file info: %w", err)
		}

		if flagJSON {
			output.JSON(f)
			return nil
		}
		output.FileDetail(f)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <file-id> [dest-dir]",
	Short: "Download a file",
	Long: `Download a processed file through a short-lived signed link.

  excelctl download 550e8400-...
  excelctl download 550e8400-... ./exports
  excelctl download 550e8400-... -o report.xlsx`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		ctx := cmd.Context()

		f, err := apiClient.GetFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("fetching file info: %w", err)
		}
		link, err := apiClient.DownloadURL(ctx, args[0])
		if err != nil {
			return fmt.Errorf("getting download URL: %w", err)
		}

		dest := flagOutput
		if dest == "" {
			dir := "."
			if len(args) > 1 {
				dir = args[1]
			}
			dest = filepath.Join(dir, filepath.Base(f.OriginalName))
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}

		n, err := apiClient.Download(ctx, link.URL, dest)
		if err != nil {
			return fmt.Errorf("downloading: %w", err)
		}
		fmt.Fprintf(output.Out, "Downloaded %s to %s (%s)\n", f.OriginalName, dest, output.FormatSize(n))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <file-id>",
	Short: "Delete a file",
	Long: `Delete a file and its stored payload. Charts built from it keep their
data but lose the link to the source.

  excelctl rm 550e8400-...
  excelctl rm 550e8400-... --force     Skip confirmation`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		f, err := apiClient.GetFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching file info: %w", err)
		}

		if !flagForce {
			fmt.Fprintf(output.Out, "Delete %q? This cannot be undone. [y/N] ", f.OriginalName)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.TrimSpace(strings.ToLower(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(output.Out, "Cancelled.")
				return nil
			}
		}

		if err := apiClient.DeleteFile(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting: %w", err)
		}
		fmt.Fprintf(output.Out, "Deleted: %s\n", f.OriginalName)
		return nil
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <file-id>",
	Short: "Retry processing of a failed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		job, err := apiClient.ReprocessFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reprocessing: %w", err)
		}

		if flagJSON {
			output.JSON(job)
			return nil
		}
		fmt.Fprintf(output.Out, "Job %s is %s (attempt %d of %d)\n", job.ID, job.Status, job.Attempts, job.MaxAttempts)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&flagDescription, "description", "", "File description")
	uploadCmd.Flags().StringVar(&flagTags, "tags", "", "Comma separated tags")
	uploadCmd.Flags().BoolVar(&flagPublic, "public", false, "Make the file visible to every user")
	uploadCmd.Flags().BoolVar(&flagWait, "wait", false, "Wait until processing finishes")

	lsCmd.Flags().StringVar(&fileFilter.Status, "status", "", "Filter by status: processing, processed, failed")
	lsCmd.Flags().StringVar(&fileFilter.Search, "search", "", "Filter by name")
	lsCmd.Flags().StringVar(&fileFilter.Tag, "tag", "", "Filter by tag")
	lsCmd.Flags().StringVar(&fileFilter.Sort, "sort", "", "Sort field: createdAt, size, originalName, downloadCount")
	lsCmd.Flags().StringVar(&fileFilter.Order, "order", "", "Sort order: asc, desc")
	lsCmd.Flags().BoolVar(&fileFilter.All, "all", false, "List every user's files (admins only)")
	lsCmd.Flags().IntVar(&fileFilter.Page, "page", 1, "Page number")

	downloadCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write to this path instead of the original name")
	rmCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Skip confirmation prompt")

	rootCmd.AddCommand(uploadCmd, lsCmd, infoCmd, downloadCmd, rmCmd, reprocessCmd)
}
