package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/invite"
)

var photosBy string

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Upload and list guest photos",
}

var photosUploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload one batch of photos",
	Long: `Upload one batch of photos. The server shrinks every image to at most
1920px on its longest side and about 1MB, and rejects the whole batch if any
file is not an image.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]invite.PhotoUpload, 0, len(args))
		for _, p := range args {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			files = append(files, invite.PhotoUpload{Name: filepath.Base(p), Body: f})
		}

		ctx, cancel := withTimeout(cmd)
		defer cancel()
		photos, err := newStore().UploadPhotos(ctx, photosBy, files)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), photos)
		}
		for _, p := range photos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%dx%d\t%s\n", p.ID, p.Width, p.Height, p.URL)
		}
		return nil
	},
}

var photosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List photos, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		var items []domain.GuestPhoto
		if err := newStore().Query(ctx, domain.TablePhotos, &items); err != nil {
			return err
		}
		return printPhotos(cmd.OutOrStdout(), items)
	},
}

func init() {
	photosUploadCmd.Flags().StringVar(&photosBy, "by", "", "uploader name (default Anonymous)")
	photosCmd.AddCommand(photosUploadCmd, photosListCmd)
}
