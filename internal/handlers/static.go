package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// StaticHandler はフロントエンドの静的ファイルを配信するフォールバックです。
// "/" は index.html、"/<path>" はファイル、無ければ "<path>.html" を返します。
type StaticHandler struct {
	root string
}

// NewStaticHandler は新しいStaticHandlerを作成します。
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: root}
}

// NotFoundJSON はJSONの404を返します。
func NotFoundJSON(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
}

// ServeHandler はルートに一致しなかったリクエストを処理します。
func (h *StaticHandler) ServeHandler(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		NotFoundJSON(c)
		return
	}
	full, ok := h.resolve(c.Request.URL.Path)
	if !ok {
		NotFoundJSON(c)
		return
	}
	// http.ServeFile は /index.html をリダイレクトするため ServeContent を使う
	f, err := os.Open(full)
	if err != nil {
		NotFoundJSON(c)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		NotFoundJSON(c)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// resolve はURLパスを静的ディレクトリ内のファイルに解決します。
// Cleanで ".." を取り除くため、静的ディレクトリの外は参照できません。
func (h *StaticHandler) resolve(urlPath string) (string, bool) {
	if h.root == "" || strings.ContainsRune(urlPath, 0) {
		return "", false
	}
	clean := path.Clean("/" + urlPath)
	if clean == "/api" || strings.HasPrefix(clean, "/api/") {
		return "", false
	}

	rel := strings.TrimPrefix(clean, "/")
	if rel == "" {
		rel = "index.html"
	}

	candidates := []string{rel, rel + ".html"}
	for _, name := range candidates {
		full := filepath.Join(h.root, filepath.FromSlash(name))
		if !within(h.root, full) {
			return "", false
		}
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, true
		}
	}
	return "", false
}

func within(root, full string) bool {
	rel, err := filepath.Rel(root, full)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
