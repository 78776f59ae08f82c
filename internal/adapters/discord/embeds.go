package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/battletrack/internal/domain/model"
)

const (
	leaderboardSize  = 10
	leaderboardColor = 0xF4D701
	queueColor       = 0xB34760
)

func leaderboardEmbed(users []model.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Battleball Leaderboard",
		Description: "It's probably not updated in real-time, but it should give you a good idea of who's on top!",
		Color:       leaderboardColor,
	}
	for idx, u := range users {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s", idx+1, u.Username),
			Value: fmt.Sprintf("Score: %d | Ranked: %d | Non-Ranked: %d",
				u.TotalScore, u.RankedMatches, u.NonRankedMatches),
		})
	}
	if len(users) == 0 {
		embed.Description = "Nobody is tracked yet. Queue someone with /update."
	}
	return embed
}

func queueEmbed(entries []model.QueueEntry, currentUser string, remaining int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Battleball Update Queue",
		Color: queueColor,
	}
	if len(entries) == 0 {
		embed.Description = "The queue is empty."
		return embed
	}
	for _, e := range entries {
		value := "pending"
		if e.Username == currentUser {
			value = fmt.Sprintf("updating now, %d matches left", remaining)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s", e.Position, e.Username),
			Value: value,
		})
	}
	return embed
}
