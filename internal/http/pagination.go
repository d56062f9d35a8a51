package httpserver

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidPage = errors.New("invalid page")

// pageInfo describes one page of a list of Total items.
type pageInfo struct {
	Number   int
	NumPages int
	PerPage  int
	Total    int
}

func (p pageInfo) Offset() int { return (p.Number - 1) * p.PerPage }

func (p pageInfo) HasPrevious() bool { return p.Number > 1 }

func (p pageInfo) HasNext() bool { return p.Number < p.NumPages }

func (p pageInfo) Previous() int { return p.Number - 1 }

func (p pageInfo) Next() int { return p.Number + 1 }

// resolvePage turns the raw ?page= value into a page. An empty value means the
// first page and "last" the final one. An empty list still has one (empty)
// first page; every other out-of-range or malformed value is errInvalidPage.
func resolvePage(raw string, total, perPage int) (pageInfo, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if total < 0 {
		total = 0
	}
	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	info := pageInfo{NumPages: numPages, PerPage: perPage, Total: total}

	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		info.Number = 1
	case "last":
		info.Number = numPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > numPages {
			return pageInfo{}, errInvalidPage
		}
		info.Number = n
	}
	return info, nil
}
