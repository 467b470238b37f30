package server

import (
	"github.com/bulktracker/btdash/internal/protocol"
	"github.com/bulktracker/btdash/internal/table"
)

func buildLink(b protocol.BuildRecord) string {
	if id := b.ID(); id != "" {
		return "build/" + pathSegment(id.String())
	}
	return ""
}

var buildColumns = []table.Column[protocol.BuildRecord]{
	{Title: "Date", Field: "BuildTs", Render: table.DateOnly, Hint: table.RelativeAge, Link: buildLink},
	{Title: "Branch", Field: "Branch", Link: buildLink},
	{Title: "Platform", Field: "Platform", Link: buildLink},
	{Title: "Stats", Value: func(b protocol.BuildRecord) any { return b.Summary() }},
	{Title: "User", Field: "BuildUser"},
}

var buildDefaultSort = table.SortSpec{Column: 0, Direction: table.Descending}

var breakingColumns = []table.Column[protocol.BreakingPackageRecord]{
	{
		Title: "Location",
		Field: "PkgPath",
		Link: func(p protocol.BreakingPackageRecord) string {
			if !packagePathRE.MatchString(p.PkgPath) {
				return ""
			}
			return "pkgresults/" + p.PkgPath
		},
	},
	{
		Title: "Package",
		Field: "PkgName",
		Link: func(p protocol.BreakingPackageRecord) string {
			if p.ResultID == "" {
				return ""
			}
			return "pkg/" + pathSegment(p.ResultID.String())
		},
	},
	{
		Title:  "Status",
		Field:  "BuildStatus",
		Render: table.StatusLabel,
		Class:  func(p protocol.BreakingPackageRecord) string { return table.StatusClass(p.BuildStatus) },
	},
	{Title: "Breaks", Field: "Breaks"},
}

var breakingDefaultSort = table.SortSpec{Column: 3, Direction: table.Descending}

var pkgResultColumns = []table.Column[protocol.PackageResultRecord]{
	{
		Title: "Package",
		Field: "PkgName",
		Link: func(p protocol.PackageResultRecord) string {
			if p.ResultID == "" {
				return ""
			}
			return "pkg/" + pathSegment(p.ResultID.String())
		},
	},
	{
		Title:  "Status",
		Field:  "BuildStatus",
		Render: table.StatusLabel,
		Class:  func(p protocol.PackageResultRecord) string { return table.StatusClass(p.BuildStatus) },
	},
	{Title: "Date", Field: "BuildTs", Render: table.DateOnly, Hint: table.RelativeAge},
	{Title: "Branch", Field: "Branch"},
	{
		Title: "Platform",
		Field: "Platform",
		Link: func(p protocol.PackageResultRecord) string {
			if p.BuildID == "" {
				return ""
			}
			return "build/" + pathSegment(p.BuildID.String())
		},
	},
	{Title: "Compiler", Field: "Compiler"},
}
