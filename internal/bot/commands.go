package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "infraction",
			Description: "Manage member infractions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "administer, change, remove, or view",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "administer", Value: "administer"},
						{Name: "change", Value: "change"},
						{Name: "remove", Value: "remove"},
						{Name: "view", Value: "view"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "target member (administer, view)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "penalty",
					Description: "punishment to apply",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "timeout", Value: "timeout"},
						{Name: "kick", Value: "kick"},
						{Name: "tempban", Value: "tempban"},
						{Name: "ban", Value: "ban"},
						{Name: "none", Value: "none"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "duration for timeout/tempban, e.g. 30m, 12h, 3d",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "reason shown in the log and to the member",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "infraction id (change, remove)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mod_notes",
					Description: "moderator-only notes",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "public_notes",
					Description: "notes shown to the member",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "related_message",
					Description: "link to the message that prompted the infraction",
					Required:    false,
				},
			},
		},
		{
			Name:        "quote",
			Description: "Add or fetch a community quote",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add, random or count",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "random", Value: "random"},
						{Name: "count", Value: "count"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "quote text (add)",
					Required:    false,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Show a member's balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "member to look up",
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the richest members",
		},
		{
			Name:        "timezone",
			Description: "Set or view a timezone",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "set or view",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "set", Value: "set"},
						{Name: "view", Value: "view"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "zone",
					Description: "IANA zone name, e.g. Europe/Berlin",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "member to look up (view)",
					Required:    false,
				},
			},
		},
		{
			Name:        "timestamp",
			Description: "Render a local time as a Discord timestamp",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "local time as YYYY-MM-DD HH:MM",
					Required:    true,
				},
			},
		},
		{
			Name:        "welcomeroles",
			Description: "Manage roles granted to new members",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add, remove, or list",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
						{Name: "list", Value: "list"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "role to add or remove",
					Required:    false,
				},
			},
		},
		{
			Name:        "settings",
			Description: "View or set guild channels",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "log_channel",
					Description: "infraction log channel",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "welcome_channel",
					Description: "welcome message channel",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "membercount_channel",
					Description: "channel renamed with the member count",
					Required:    false,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
