package i18n

var messagesPTBR = map[string]string{
	KeyJoined:       "Você entrou em %s.",
	KeyWaitlisted:   "O evento %s está cheio! Você foi adicionado à lista de reservas.",
	KeyLeft:         "Você saiu do evento %s.",
	KeyLeftWaitlist: "Você saiu da lista de reservas de %s.",
	KeyClosed:       "%s foi finalizado.",
	KeyPromoted:     "Abriu uma vaga em %s e agora você está participando.",

	KeyAlreadyJoined:     "Você já está participando!",
	KeyAlreadyWaitlisted: "Você já está na lista de reservas!",
	KeyNotParticipating:  "Você não está participando nem na lista de reservas.",
	KeyNotOwner:          "Somente o responsável pode finalizar o evento.",
	KeyRosterClosed:      "Este evento já foi finalizado.",
	KeyRosterNotFound:    "Evento não encontrado.",
	KeyInvalidCapacity:   "Quantidade inválida! Use apenas números positivos.",

	KeyCardTitle:        "Evento: %s",
	KeyCardTitleClosed:  "Evento %s finalizado",
	KeyCardDate:         "Data",
	KeyCardTime:         "Hora",
	KeyCardSlots:        "Vagas",
	KeyCardOwner:        "Responsável",
	KeyCardParticipants: "Participantes",
	KeyCardWaitlist:     "Reservas",
	KeyCardNone:         "Nenhum",
	KeyCardStatus:       "Situação",

	KeyStatusOpen:     "Aberto",
	KeyStatusNearFull: "Quase cheio",
	KeyStatusFull:     "Cheio",
	KeyStatusClosed:   "Finalizado",

	KeyPromotedSubject: "Sua vaga foi confirmada: %s",
	KeyPromotedBody:    "Olá %s, abriu uma vaga em **%s** e você saiu da lista de reservas. Até lá!",
}
