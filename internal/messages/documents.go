package messages

// Operation names, sent as operationName with each request.
const (
	OpMessageCount    = "MessageCount"
	OpGetMessages     = "GetMessages"
	OpGetMessageLists = "GetMessageLists"
)

// QueryMessageCount fetches the number of messages matching $params.
const QueryMessageCount = `
  query MessageCount($params: FilterParamsInput) {
    messageCount(params: $params)
  }
`

// messagesSelection is the node selection shared by the page query and every
// alias of the batched list query.
const messagesSelection = `{
  totalCount
  pageInfo {
    startCursor
    hasNextPage
  }
  nodes {
    created
    id
    messageId
    opened
    read
    tags
    content {
      title
      body
      blocks {
        ... on TextBlock {
          type
          text
        }
        ... on ActionBlock {
          type
          text
          url
        }
      }
      data
      trackingIds {
        openTrackingId
        archiveTrackingId
        clickTrackingId
        deliverTrackingId
        readTrackingId
        unreadTrackingId
      }
    }
  }
}`

// QueryGetMessages fetches one page of messages.
const QueryGetMessages = `
  query GetMessages($params: FilterParamsInput, $limit: Int = 10, $after: String){
    messages(params: $params, limit: $limit, after: $after) ` + messagesSelection + `
  }
`
