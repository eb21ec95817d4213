package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gin-admin-kit/pkg/export"
)

// exportList streams the current list page as a CSV or PDF download.
func (s *Site) exportList(c *gin.Context, r *Resource, page int, columns []Column, rows []listRow, format string) {
	exporter, ok := export.ForFormat(format)
	if !ok {
		c.String(http.StatusBadRequest, "Unsupported export format.")
		return
	}

	data := export.Dataset{Title: r.DisplayName(), Headers: make([]string, len(columns))}
	for i, col := range columns {
		data.Headers[i] = col.Label
	}
	for _, row := range rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.Value
		}
		data.Rows = append(data.Rows, cells)
	}

	body, err := exporter.Render(data)
	if err != nil {
		s.fail(c, err, "export admin records")
		return
	}
	filename := fmt.Sprintf("%s-page-%d.%s", r.Name(), page, exporter.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, exporter.ContentType(), body)
}
