package webserver

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"officeconv/internal/formats"
	"officeconv/internal/runs"
)

// FileInfo describes one entry of a tree listing.
type FileInfo struct {
	Name          string    `json:"name"`
	RelativePath  string    `json:"relative_path"`
	SizeBytes     int64     `json:"size_bytes"`
	Modified      time.Time `json:"modified_timestamp"`
	ModifiedHuman string    `json:"modified_human"`
}

// TreeStats aggregates one tree for the stats endpoint.
type TreeStats struct {
	Path           string   `json:"path"`
	Total          int      `json:"total"`
	TotalSizeBytes int64    `json:"total_size_bytes"`
	Extensions     []string `json:"extensions"`
}

func (s *Server) handleHealth(c *gin.Context) {
	checkErr := s.opts.Checker.Check()
	rawOK := dirExists(s.opts.SourceRoot)
	preparedOK := dirExists(s.opts.DestRoot)

	status := "healthy"
	code := http.StatusOK
	switch {
	case checkErr != nil:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !rawOK || !preparedOK:
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":                status,
		"libreoffice_available": checkErr == nil,
		"raw_dir_exists":        rawOK,
		"prepared_dir_exists":   preparedOK,
	})
}

// handleConvert triggers a pass. The default is synchronous: the response
// carries the finished run with its summary. With ?async=true the pass runs
// in the background and the response is its initial snapshot.
func (s *Server) handleConvert(c *gin.Context) {
	async := false
	if v := c.Query("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, invalidArgument("async: %v", err))
			return
		}
		async = b
	}

	// A missing or unusable binary fails every file the same way; refuse the
	// pass up front instead of recording a run full of identical failures.
	if err := s.opts.Checker.Check(); err != nil {
		writeError(c, err)
		return
	}

	if async {
		run, err := s.opts.Runs.Start(s.lifetime())
		if err != nil {
			writeError(c, err)
			return
		}

		s.log.Info("background pass started", "run_id", run.ID)
		c.JSON(http.StatusAccepted, run)

		return
	}

	run, err := s.opts.Runs.RunSync(c.Request.Context())
	if err != nil {
		if errors.Is(err, runs.ErrRunActive) {
			writeError(c, err)
			return
		}

		// The pass itself failed; the recorded run carries the fault.
		c.JSON(http.StatusInternalServerError, run)

		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.opts.Runs.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListFiles(c *gin.Context) {
	tree := c.Param("tree")
	root, err := s.treeRoot(tree)
	if err != nil {
		writeError(c, err)
		return
	}

	recursive := false
	if v := c.Query("recursive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, invalidArgument("recursive: %v", err))
			return
		}
		recursive = b
	}

	files, err := listFiles(root, recursive)
	if err != nil {
		writeError(c, err)
		return
	}

	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}

	c.JSON(http.StatusOK, gin.H{
		"tree":             tree,
		"count":            len(files),
		"total_size_bytes": total,
		"files":            files,
	})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	tree := c.Param("tree")
	root, err := s.treeRoot(tree)
	if err != nil {
		writeError(c, err)
		return
	}

	rel := strings.TrimPrefix(c.Param("path"), "/")
	full, err := SafeJoin(root, rel)
	if err != nil {
		writeError(c, err)
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		writeError(c, err)
		return
	}

	if info.IsDir() {
		writeError(c, invalidArgument("%s is a directory", rel))
		return
	}

	if err := os.Remove(full); err != nil {
		writeError(c, err)
		return
	}

	s.log.Info("deleted file", "tree", tree, "path", rel)
	c.JSON(http.StatusOK, gin.H{"tree": tree, "deleted": filepath.ToSlash(rel)})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"raw":               collectTreeStats(s.opts.SourceRoot),
		"prepared":          collectTreeStats(s.opts.DestRoot),
		"conversion_active": s.opts.Runs.Busy(),
		"supported_formats": s.opts.Formats.Exts(),
	})
}

func (s *Server) treeRoot(tree string) (string, error) {
	switch tree {
	case TreeRaw:
		return s.opts.SourceRoot, nil
	case TreePrepared:
		return s.opts.DestRoot, nil
	default:
		return "", invalidArgument("unknown tree %q, want %q or %q", tree, TreeRaw, TreePrepared)
	}
}

// listFiles returns the regular files under root, ordered by file name.
func listFiles(root string, recursive bool) ([]FileInfo, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	files := []FileInfo{}

	add := func(rel string, info fs.FileInfo) {
		mod := info.ModTime().UTC()
		files = append(files, FileInfo{
			Name:          info.Name(),
			RelativePath:  filepath.ToSlash(rel),
			SizeBytes:     info.Size(),
			Modified:      mod,
			ModifiedHuman: mod.Format("2006-01-02 15:04:05"),
		})
	}

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}

			info, err := e.Info()
			if err != nil {
				continue
			}

			add(e.Name(), info)
		}

		return files, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		add(rel, info)

		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir yields path order; the listing is name-ordered, with the
	// relative path breaking ties between same-named files.
	sort.Slice(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name < files[j].Name
		}

		return files[i].RelativePath < files[j].RelativePath
	})

	return files, nil
}

// collectTreeStats counts regular files under root and the set of extensions
// seen. Unreadable entries are left out rather than failing the endpoint.
func collectTreeStats(root string) TreeStats {
	st := TreeStats{Path: root, Extensions: []string{}}
	seen := make(map[string]bool)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		st.Total++
		st.TotalSizeBytes += info.Size()

		if ext := formats.NormalizeExt(filepath.Ext(path)); ext != "" && !seen[ext] {
			seen[ext] = true
			st.Extensions = append(st.Extensions, ext)
		}

		return nil
	})

	sort.Strings(st.Extensions)

	return st
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
