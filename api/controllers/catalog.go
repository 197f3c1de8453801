package controllers

import (
	"net/http"

	"github.com/krishnaroyalclub/krc-backend/api/responses"
	"github.com/krishnaroyalclub/krc-backend/api/validators"
	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

const maxItemGroupLength = 140

type listItemsRequest struct {
	ItemGroup string `json:"item_group"`
}

// ListItems returns the enabled, sellable items of a group. The group comes
// from the item_group query parameter, or from the body on POST.
func ListItems(reader catalog.Reader, logg *logger.Logger) http.HandlerFunc {
	if reader == nil {
		return unavailable("catalog unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		group := r.URL.Query().Get("item_group")
		if group == "" && r.Method == http.MethodPost {
			var body listItemsRequest
			if err := validators.DecodeJSONPayload(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			group = body.ItemGroup
		}

		list, err := reader.ListItems(r.Context(), validators.SanitizeString(group, maxItemGroupLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
