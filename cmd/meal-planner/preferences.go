package main

import (
	"github.com/spf13/cobra"

	"grounded-meal-planner/internal/filter"
)

// preferenceFlags registers the user preference flags shared by plan and search.
type preferenceFlags struct {
	diet      string
	allergies []string
	dislikes  []string
	goals     []string
	activity  string
	notes     string
	cuisines  []string
	maxTime   int
	calories  int
}

func (p *preferenceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&p.diet, "diet", "", "diet type, e.g. vegan, vegetarian, pescatarian")
	fs.StringSliceVar(&p.allergies, "allergies", nil, "comma separated allergies")
	fs.StringSliceVar(&p.dislikes, "dislikes", nil, "comma separated disliked ingredients")
	fs.StringSliceVar(&p.goals, "goals", nil, "comma separated goals, e.g. weight_loss,muscle_gain")
	fs.StringVar(&p.activity, "activity", "", "activity level, e.g. sedentary, moderate, active")
	fs.StringVar(&p.notes, "notes", "", "free text notes")
	fs.StringSliceVar(&p.cuisines, "cuisines", nil, "comma separated preferred cuisines")
	fs.IntVar(&p.maxTime, "max-time", 0, "maximum total time per recipe in minutes")
	fs.IntVar(&p.calories, "calories", 0, "daily calorie target")
}

func (p *preferenceFlags) preferences() filter.Preferences {
	return filter.Preferences{
		DietType:        p.diet,
		Allergies:       p.allergies,
		Dislikes:        p.dislikes,
		Goals:           p.goals,
		ActivityLevel:   p.activity,
		Notes:           p.notes,
		Cuisines:        p.cuisines,
		MaxTotalTimeMin: p.maxTime,
		CalorieTarget:   p.calories,
	}
}
