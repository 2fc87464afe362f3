package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"postdesk/pkg/models"
	"postdesk/pkg/services"

	"github.com/spf13/cobra"
)

var (
	listTag    string
	listDrafts bool
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List posts, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		articles, err := services.GetArticlesCache()
		if err != nil {
			return fmt.Errorf("index posts: %w", err)
		}
		articles = services.FilterArticles(articles, listTag, listDrafts)

		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(articles)
		}

		rows := make([][]string, 0, len(articles))
		for _, art := range articles {
			rows = append(rows, []string{formatDate(art), draftMark(art), art.Title, art.Path})
		}
		return writeTable(cmd.OutOrStdout(), []string{"DATE", "DRAFT", "TITLE", "PATH"}, rows)
	},
}

func formatDate(art models.Article) string {
	if art.Date.IsZero() {
		return "-"
	}
	return art.Date.Format("2006-01-02")
}

func draftMark(art models.Article) string {
	if art.Draft {
		return "yes"
	}
	return ""
}

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show how often each tag is used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		articles, err := services.GetArticlesCache()
		if err != nil {
			return fmt.Errorf("index posts: %w", err)
		}
		index := services.TagIndex(articles)

		if tagsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(index)
		}

		rows := make([][]string, 0, len(index))
		for _, tc := range index {
			rows = append(rows, []string{tc.Tag, strconv.Itoa(tc.Count), strings.Join(tc.Posts, ", ")})
		}
		return writeTable(cmd.OutOrStdout(), []string{"TAG", "POSTS", "FILES"}, rows)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listTag, "tag", "t", "", "only posts with this tag")
	listCmd.Flags().BoolVar(&listDrafts, "drafts", true, "include drafts")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "print JSON")
}
