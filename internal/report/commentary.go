package report

// Static text shown alongside the views. The wording is fixed per view and
// does not depend on the loaded data.

// Title is the default report heading.
const Title = "Air Quality Analysis: Aotizhongxin Station"

// Questions are the business questions the report answers.
var Questions = []string{
	"What is the correlation between wind speed (WSPM) and PM2.5 concentration levels?",
	"Are there identifiable seasonal patterns in PM10 concentration levels across different months or seasons?",
}

// DatasetInsight accompanies the preview table.
var DatasetInsight = []string{
	"The dataset shows air quality metrics such as PM2.5, PM10, SO2, NO2, CO, and O3, " +
		"including meteorological data like temperature (TEMP), wind speed (WSPM), and pressure (PRES), " +
		"enabling the analysis of environmental factors that influence air quality.",
}

var ScatterCommentary = []string{
	"The correlation coefficient between wind speed (WSPM) and PM2.5 concentration is approximately -0.28, " +
		"indicating a weak negative correlation.",
	"As wind speed increases, PM2.5 concentration tends to slightly decrease.",
	"Higher wind speeds are associated with lower PM2.5 levels, though the trend is not very strong.",
}

var SeasonalCommentary = []string{
	"The average PM10 concentration levels by season are Winter 116.98, Spring 132.04, Summer 81.51 and Fall 110.09.",
	"Spring has the highest average PM10 concentration, while Summer has the lowest.",
	"Air quality improves during the summer and worsens in the spring.",
}

var CorrelationCommentary = []string{
	"The heatmap shows a weak negative correlation between wind speed (WSPM) and PM2.5 levels: " +
		"higher wind speeds tend to slightly reduce the concentration of PM2.5 particles in the air.",
	"Wind plays a role in dispersing particulate matter, contributing to better air quality.",
}

var MonthlyCommentary = []string{
	"Monthly average PM10 levels show clear seasonal variation, with higher concentrations in Spring " +
		"and lower levels during the Summer.",
	"Air quality tends to worsen in Spring, possibly due to increased industrial activity or natural events, " +
		"and improves in Summer, likely due to favorable weather conditions.",
}

// Conclusion closes the report, one entry per business question.
var Conclusion = []string{
	"Wind speed and PM2.5: the coefficient is approximately -0.28, a weak negative correlation. " +
		"Higher wind speeds tend to slightly reduce PM2.5, and although the relationship is not strong, " +
		"wind helps disperse particulate matter.",
	"Seasonal PM10: Spring has the highest average concentration (132.04) and Summer the lowest (81.51). " +
		"Air quality tends to worsen in Spring and improve in Summer, likely from seasonal factors " +
		"such as weather patterns and dust storms.",
}
