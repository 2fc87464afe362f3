package cli

import (
	"fmt"
	"strings"
	"time"

	"postdesk/pkg/models"
	"postdesk/pkg/services"

	"github.com/spf13/cobra"
)

var (
	newTags    []string
	newDate    string
	newSlug    string
	newPublish bool
)

var newCmd = &cobra.Command{
	Use:   "new TITLE",
	Short: "Scaffold a post named YYYY-MM-DD-slug.md",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.CreatePostRequest{
			Title: strings.Join(args, " "),
			Tags:  newTags,
			Slug:  newSlug,
		}
		if newDate != "" {
			date, err := time.ParseInLocation("2006-01-02", newDate, time.Local)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			req.Date = date
		}
		draft := !newPublish
		req.Draft = &draft

		path, err := services.CreatePost(req)
		if err != nil {
			return err
		}
		log.Info("post created", "path", path)
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	},
}

func init() {
	newCmd.Flags().StringSliceVarP(&newTags, "tags", "t", nil, "tags (comma separated)")
	newCmd.Flags().StringVar(&newDate, "date", "", "publication date, YYYY-MM-DD (default today)")
	newCmd.Flags().StringVar(&newSlug, "slug", "", "URL slug (default derived from the title)")
	newCmd.Flags().BoolVar(&newPublish, "publish", false, "create with draft: false")
}
