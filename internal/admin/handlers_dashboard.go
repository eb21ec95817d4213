package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type dashboardCard struct {
	Name        string
	DisplayName string
	Icon        string
	URL         string
	Count       int
	Available   bool
}

func (s *Site) handleDashboard(c *gin.Context) {
	resources := s.Resources()
	cards := make([]dashboardCard, 0, len(resources))
	for _, r := range resources {
		card := dashboardCard{Name: r.Name(), DisplayName: r.DisplayName(), Icon: r.Icon(), URL: s.listURL(r)}
		_, total, err := r.DAO().List(c.Request.Context(), 0, 0, "")
		if err != nil {
			_ = c.Error(err)
			s.logger.Error("count admin records", zap.String("resource", r.Name()), zap.Error(err))
		} else {
			card.Count = total
			card.Available = true
		}
		cards = append(cards, card)
	}
	s.render(c, http.StatusOK, ViewDashboard, map[string]any{
		"page_title": "Dashboard",
		"active_nav": "dashboard",
		"cards":      cards,
	})
}
