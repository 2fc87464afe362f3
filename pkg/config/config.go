package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	RepoPath     = "./repo"
	ContentDir   = "content"
	PostsSection = "posts"
	StaticDir    = "static"
	PublicPath   = "./repo/public"
	PreviewURL   = "/preview/"
	CMSConfig    = "static/admin/config.yml"

	// Hugo Server settings
	HugoServerPort = "1314"
	HugoServerBind = "127.0.0.1"

	// Cache settings
	CacheConcurrency  = 20
	FileReadHeadLimit = int64(4096)

	// Media settings
	MediaDir = "static/images"

	// Git settings
	GitUserEmail = "bot@postdesk.local"
	GitUserName  = "postdesk"
	GitBranch    = "main"
	GitRemote    = "origin"

	LogLevel      = "info"
	ListenAddr    = ":8080"
	SessionSecret = ""
)

var OauthConf *oauth2.Config

// Init loads .env (when present) and the environment. Missing variables keep
// their defaults. It reports whether a .env file was read.
func Init() bool {
	loaded := godotenv.Load() == nil

	// Helper to get env with default
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	appURL := GetAppURL()
	redirectURL := getEnv("GITHUB_REDIRECT_URL", appURL+"/auth/callback")

	RepoPath = getEnv("REPO_PATH", "./repo")
	ContentDir = getEnv("CONTENT_DIR", "content")
	PostsSection = getEnv("POSTS_SECTION", "posts")
	StaticDir = getEnv("STATIC_DIR", "static")
	PublicPath = getEnv("PUBLIC_PATH", filepath.Join(RepoPath, "public"))
	CMSConfig = getEnv("CMS_CONFIG", "static/admin/config.yml")

	HugoServerPort = getEnv("HUGO_SERVER_PORT", "1314")
	HugoServerBind = getEnv("HUGO_SERVER_BIND", "127.0.0.1")

	MediaDir = getEnv("MEDIA_DIR", "")

	GitUserEmail = getEnv("GIT_USER_EMAIL", "bot@postdesk.local")
	GitUserName = getEnv("GIT_USER_NAME", "postdesk")
	GitBranch = getEnv("GIT_BRANCH", "main")
	GitRemote = getEnv("GIT_REMOTE", "origin")

	LogLevel = getEnv("LOG_LEVEL", "info")
	ListenAddr = getEnv("LISTEN_ADDR", ":8080")
	SessionSecret = os.Getenv("SESSION_SECRET")

	if cc := os.Getenv("CACHE_CONCURRENCY"); cc != "" {
		if val, err := strconv.Atoi(cc); err == nil && val > 0 {
			CacheConcurrency = val
		}
	}

	OauthConf = &oauth2.Config{
		ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		Scopes:       []string{"repo"},
		Endpoint:     github.Endpoint,
		RedirectURL:  redirectURL,
	}
	return loaded
}

// SetRepoPath points every repo-relative setting at root.
func SetRepoPath(root string) {
	RepoPath = root
	PublicPath = filepath.Join(root, "public")
}

func GetAppURL() string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	return appURL
}

// ContentRoot is the Hugo content directory.
func ContentRoot() string {
	return filepath.Join(RepoPath, ContentDir)
}

// PostsDir is the directory holding the post collection.
func PostsDir() string {
	return filepath.Join(RepoPath, ContentDir, PostsSection)
}

func StaticRoot() string {
	return filepath.Join(RepoPath, StaticDir)
}
