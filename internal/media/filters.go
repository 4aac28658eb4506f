package media

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Filter interface {
	Apply(*gorm.DB) *gorm.DB
}

type PageFilter struct {
	Offset int
	Limit  int
}

func (f PageFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(f.Offset).Limit(f.Limit)
}

type FeaturedFilter struct {
	Featured bool
}

func (f FeaturedFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("featured = ?", f.Featured)
}

type OrderByAddDateFilter struct {
	Desc bool
}

func (f OrderByAddDateFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: "add_date"},
		Desc:   f.Desc,
	})
}
