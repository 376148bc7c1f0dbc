package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

const maxPageSize = 100

// parsePagination reads skip/limit, clamping limit into [1, 100].
func parsePagination(ctx *gin.Context) (int, int) {
	skip, _ := strconv.Atoi(ctx.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(maxPageSize)))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// respondRepoError maps repository failures onto the response envelope.
func respondRepoError(ctx *gin.Context, err error, notFound string, op string) {
	if errors.Is(err, repositories.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, notFound)
		return
	}
	utils.Sugar.Errorf("%s: %v", op, err)
	utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to "+op)
}

// cachedList serves a list envelope from cache, or builds and caches it.
func cachedList(ctx *gin.Context, page utils.ListPage, build func() (utils.ListResult, error), op string) {
	if b, ok := utils.CachedListPage(page); ok {
		utils.RawJSON(ctx, b)
		return
	}
	res, err := build()
	if err != nil {
		utils.Sugar.Errorf("%s: %v", op, err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to "+op)
		return
	}
	resp := utils.JSONResponse{Code: 0, Message: "success", Data: res}
	utils.StoreListPage(page, resp)
	ctx.JSON(http.StatusOK, resp)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
